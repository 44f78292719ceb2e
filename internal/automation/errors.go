package automation

import (
	"errors"
	"fmt"

	"qiandao/internal/screen"
)

// ErrStepTimeout marks a wait whose condition never held.
var ErrStepTimeout = errors.New("step timed out")

// InputError is a single failed pointer operation. It is retried by the
// retrying click and never surfaces on its own.
type InputError struct {
	Op    string
	Point screen.Point
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s at %s: %v", e.Op, e.Point, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// StageError aborts the workflow. Description is the user-facing reason.
type StageError struct {
	Stage       Stage
	Description string
	Err         error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Description, e.Err)
	}
	return e.Description
}

func (e *StageError) Unwrap() error { return e.Err }

// IsAbort reports whether err comes from the panic switch.
func IsAbort(err error) bool {
	return errors.Is(err, screen.ErrPanicSwitch)
}
