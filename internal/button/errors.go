package button

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when a behaviour instance
	// matches neither known button encoding. Fatal for that device;
	// batch operations continue over the rest.
	ErrUnsupportedFormat = errors.New("button: unsupported behaviour format")

	// ErrNoConfiguration is returned when a behaviour instance has no
	// configuration object at all.
	ErrNoConfiguration = errors.New("button: missing configuration")

	// ErrUnknownButton is returned when encoding targets a button the
	// resource does not carry.
	ErrUnknownButton = errors.New("button: unknown button")
)

// DuplicateSlotError is returned when a time-based request contains two
// slots with the same HH:MM start time.
type DuplicateSlotError struct {
	Hour   int
	Minute int
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("button: duplicate time slot %02d:%02d", e.Hour, e.Minute)
}

// UnresolvedReferenceError is returned when a referenced scene or group
// cannot be resolved. Suggestions holds the closest names, best first.
type UnresolvedReferenceError struct {
	Kind        string // "scene", "room"
	Query       string
	Suggestions []string
}

func (e *UnresolvedReferenceError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("button: unresolved %s %q", e.Kind, e.Query)
	}
	return fmt.Sprintf("button: unresolved %s %q (closest: %s)",
		e.Kind, e.Query, strings.Join(e.Suggestions, ", "))
}

// ValidationError is returned when a request fails a structural check
// before any payload is built.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "button: invalid request: " + e.Reason
}
