// Package ldmigration provides types for tracking technology migrations with migration-assisted
// flags: staged rollouts from an old system to a new one, with consistency checking and
// per-origin latency and error measurements.
package ldmigration

import "fmt"

// Stage denotes one of the six stages of a technology migration.
type Stage string

const (
	// Off means the migration hasn't started; "old" is authoritative for reads and writes.
	Off Stage = "off"
	// DualWrite means writes go to both systems; "old" is authoritative for reads.
	DualWrite Stage = "dualwrite"
	// Shadow means reads are performed against both systems; "old" is authoritative.
	Shadow Stage = "shadow"
	// Live means reads are performed against both systems; "new" is authoritative.
	Live Stage = "live"
	// RampDown means only the "new" system is read; writes go to both systems.
	RampDown Stage = "rampdown"
	// Complete means the migration is finished; "new" is authoritative for reads and writes.
	Complete Stage = "complete"
)

// ParseStage parses a string into a Stage, or returns an error if the value is not one of the
// six recognized stages.
func ParseStage(value string) (Stage, error) {
	switch Stage(value) {
	case Off, DualWrite, Shadow, Live, RampDown, Complete:
		return Stage(value), nil
	}
	return Off, fmt.Errorf("%q is not a valid migration stage", value)
}

// Operation specifies whether a migration operation was a read or a write.
type Operation string

const (
	// Read denotes a migration-assisted read operation.
	Read Operation = "read"
	// Write denotes a migration-assisted write operation.
	Write Operation = "write"
)

// Origin denotes which system a measurement applies to: the original system being migrated
// away from, or its replacement.
type Origin string

const (
	// Old denotes the original system.
	Old Origin = "old"
	// New denotes the replacement system.
	New Origin = "new"
)
