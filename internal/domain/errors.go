package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrUnknownSlot is returned for labels outside the fixed slot set.
var ErrUnknownSlot = errors.New("unknown slot")

// Generation failure kinds. They never leave the generator, but are logged
// and counted separately.
var (
	ErrCompletionUnavailable = errors.New("completion service unavailable")
	ErrMalformedCompletion   = errors.New("malformed completion")
)
