package sandbox

import (
	"errors"
	"fmt"
)

// ErrFuelExhausted reports that a computation consumed its whole fuel
// budget with no further grant available. It is a soft failure, the
// cooperative equivalent of an execution timeout.
var ErrFuelExhausted = errors.New("fuel exhausted")

// TrapError reports a runtime fault raised by sandboxed code. Traps are
// local to one instance and never fatal to the embedder.
type TrapError struct {
	Reason string
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("trap: %s", e.Reason)
}

// Trap builds a TrapError with the supplied reason.
func Trap(reason string) *TrapError {
	return &TrapError{Reason: reason}
}
