package pairing

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientRoster means the roster is below the configured floor. It is
	// reported before any randomization happens.
	ErrInsufficientRoster = errors.New("insufficient roster")

	// ErrExhaustedAttempts means no candidate avoided history within the
	// attempt budget. The constraint set may be unsatisfiable.
	ErrExhaustedAttempts = errors.New("exhausted attempts")
)

// Error carries the diagnostics of a failed GenerateCycle call. It unwraps to
// one of the package sentinels.
type Error struct {
	Kind       error
	RosterSize int
	MinRoster  int
	Attempts   int
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrInsufficientRoster:
		return fmt.Sprintf("%v: %d members, need at least %d", e.Kind, e.RosterSize, e.MinRoster)
	case ErrExhaustedAttempts:
		return fmt.Sprintf("%v: no valid pairing for %d members after %d attempts", e.Kind, e.RosterSize, e.Attempts)
	default:
		return fmt.Sprintf("pairing failed: %v", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Kind
}
