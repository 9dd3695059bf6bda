package ldcontext

import (
	"errors"
	"regexp"
)

// Kind is a string type for the kind of a Context, such as "user" or "organization".
type Kind string

const (
	// DefaultKind is the kind that is assumed when none is specified: "user".
	DefaultKind Kind = "user"
	// MultiKind is the kind of a Context that contains multiple individual contexts.
	// It cannot be used as the kind of a single context.
	MultiKind Kind = "multi"
)

var invalidKindCharsRegex = regexp.MustCompile(`[^-a-zA-Z0-9._]`)

var (
	errKindEmpty         = errors.New("context kind must not be empty")
	errKindCannotBeKind  = errors.New(`"kind" is not a valid context kind`)
	errKindMultiReserved = errors.New(`context of kind "multi" must be created with NewMulti or NewMultiBuilder`)
	errKindInvalidChars  = errors.New("context kind contains disallowed characters")
	errKeyEmpty          = errors.New("context key must not be empty")
	errMultiEmpty        = errors.New("multi-context must contain at least one kind")
	errMultiDuplicates   = errors.New("multi-context cannot have the same kind more than once")
)

func validateKind(kind Kind) error {
	switch kind {
	case "":
		return errKindEmpty
	case "kind":
		return errKindCannotBeKind
	case MultiKind:
		return errKindMultiReserved
	}
	if invalidKindCharsRegex.MatchString(string(kind)) {
		return errKindInvalidChars
	}
	return nil
}
