package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownChannel is returned for a name that is not in the registry.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrUnknownGroup is returned for an unrecognized group tag.
	ErrUnknownGroup = errors.New("unknown group")
	// ErrDuplicateChannel is returned when a catalog defines the same name twice.
	ErrDuplicateChannel = errors.New("duplicate channel")
	// ErrInvalidDefinition is returned for a malformed catalog entry.
	ErrInvalidDefinition = errors.New("invalid channel definition")
)

// DuplicateChannelError describes a name collision found while building a registry.
type DuplicateChannelError struct {
	Name   Channel
	First  Group
	Second Group
}

func (e *DuplicateChannelError) Error() string {
	return fmt.Sprintf("duplicate channel %q: defined in %s and %s", e.Name, e.First, e.Second)
}

func (e *DuplicateChannelError) Unwrap() error {
	return ErrDuplicateChannel
}
