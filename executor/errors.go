package executor

import (
	"errors"
	"fmt"
)

// Failure kinds for a remote execution. Callers branch on these to decide
// between a down event (timeout, connection) and a skipped target (auth).
var (
	ErrTimeout    = errors.New("execution timed out")
	ErrConnection = errors.New("connection failed")
	ErrAuth       = errors.New("authentication failed")
)

// ExecError wraps an execution failure with the target it happened on.
type ExecError struct {
	Target string
	Kind   error // one of ErrTimeout, ErrConnection, ErrAuth
	Err    error
}

func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Target, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Target, e.Kind)
}

func (e *ExecError) Unwrap() error { return e.Kind }

func newExecError(target string, kind, err error) *ExecError {
	return &ExecError{Target: target, Kind: kind, Err: err}
}
