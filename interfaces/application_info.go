package interfaces

// ApplicationInfo describes the application where the SDK is running, for inclusion in the
// tags header sent to the services. Both values are optional; a value longer than 64
// characters, or containing characters other than letters, digits, `.`, `_`, and `-`, is
// discarded.
type ApplicationInfo struct {
	// ApplicationID is a unique identifier for the application.
	ApplicationID string
	// ApplicationVersion is the version of the application.
	ApplicationVersion string
}
