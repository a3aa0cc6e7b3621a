package profiler

import "fmt"

// InvalidInputError reports rejected run inputs: an unknown device selector
// or an unrecognized artifact suffix. Fatal, not retried.
type InvalidInputError struct {
	Err error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// EngineError reports a compile, load or predict failure in the model
// engine. The first failure aborts the run; the underlying message is
// surfaced verbatim.
type EngineError struct {
	Phase string
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s failed: %v", e.Phase, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
