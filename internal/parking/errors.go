package parking

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package matches one of them.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrStoreFailure = errors.New("store failure")
)

// Session outcomes.
var (
	ErrEntryFailed = errors.New("entry failed")
	ErrExitFailed  = errors.New("exit failed")
)

var (
	ErrUnknownCategory      = fmt.Errorf("%w: unknown vehicle category", ErrValidation)
	ErrNegativeDuration     = fmt.Errorf("%w: negative duration", ErrValidation)
	ErrInvalidInterval      = fmt.Errorf("%w: out time must be after in time", ErrValidation)
	ErrTicketClosed         = fmt.Errorf("%w: ticket already closed", ErrValidation)
	ErrInvalidRegistration  = fmt.Errorf("%w: vehicle registration is required", ErrValidation)
	ErrVehicleAlreadyParked = fmt.Errorf("%w: vehicle already has an open ticket", ErrValidation)
)

var (
	ErrLotFull      = fmt.Errorf("%w: no available spot", ErrNotFound)
	ErrNoOpenTicket = fmt.Errorf("%w: no open ticket", ErrNotFound)
)

var ErrSpotConflict = fmt.Errorf("%w: spot availability already set", ErrStoreFailure)

// SessionError is the single outcome reported by BeginSession and EndSession.
// errors.Is matches both the outcome (ErrEntryFailed or ErrExitFailed) and the cause.
type SessionError struct {
	Op  string
	Err error
}

const (
	OpEntry = "entry"
	OpExit  = "exit"
)

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() []error {
	switch e.Op {
	case OpEntry:
		return []error{ErrEntryFailed, e.Err}
	case OpExit:
		return []error{ErrExitFailed, e.Err}
	}
	return []error{e.Err}
}

// storeFailure classifies a collaborator error, leaving already classified errors alone.
func storeFailure(err error) error {
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}
