package service

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors returned by the booking and settlement services.  Handlers
// match them with errors.Is to choose a response status.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrCourtMismatch   = errors.New("court does not belong to ground")
	ErrDuplicateSlots  = errors.New("duplicate slots in request")
	ErrSlotConflict    = errors.New("slots already booked")
	ErrChannelMismatch = errors.New("booking channel mismatch")
	ErrNotYetCollected = errors.New("cash not yet collected")
)

// SlotError reports a slot check failure together with every offending
// label.  Kind is ErrDuplicateSlots or ErrSlotConflict.
type SlotError struct {
	Kind  error
	Slots []string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Slots, ", "))
}

func (e *SlotError) Unwrap() error { return e.Kind }

// SlotsOf returns the labels carried by a SlotError anywhere in err's
// chain, or nil.
func SlotsOf(err error) []string {
	var se *SlotError
	if errors.As(err, &se) {
		return se.Slots
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func invalidRef(kind error, what string, id uint64) error {
	return fmt.Errorf("%w: %s %d", kind, what, id)
}
