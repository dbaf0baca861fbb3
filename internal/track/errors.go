package track

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalIdentityChange is returned when an identity invariant would
	// be violated: assigning an id to an unattached track, or clearing the
	// id of an attached, already identified track.
	ErrIllegalIdentityChange = errors.New("illegal identity change")

	// ErrNotAttached is returned for operations needing a collection on a
	// track that has none.
	ErrNotAttached = errors.New("track has no collection")
)

// ErrValidation indicates a setter argument that fails validation. The
// track state is unchanged when this is returned.
type ErrValidation struct {
	Field  string
	Reason string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrReservedKeyword indicates a plain keyword using one of the reserved
// prefixes. Use the typed setters instead.
type ErrReservedKeyword struct {
	Keyword string
}

func (e *ErrReservedKeyword) Error() string {
	return fmt.Sprintf("keyword %q uses a reserved prefix, use the typed setter", e.Keyword)
}

// ErrDuplicateKeyword indicates a keyword string carrying the same reserved
// prefix more than once.
type ErrDuplicateKeyword struct {
	Keyword string
}

func (e *ErrDuplicateKeyword) Error() string {
	return fmt.Sprintf("keyword %q appears more than once", e.Keyword)
}

// ErrUnsupportedOperation indicates that the collection hosting a track
// lacks a required capability.
type ErrUnsupportedOperation struct {
	Collection string
	Op         string
}

func (e *ErrUnsupportedOperation) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Collection, e.Op)
}

// ErrCannotMerge indicates two tracks whose geometries do not allow
// merging.
type ErrCannotMerge struct {
	Reason string
}

func (e *ErrCannotMerge) Error() string {
	return fmt.Sprintf("cannot merge: %s", e.Reason)
}
