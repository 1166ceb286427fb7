package modify

import "fmt"

// InputError means the target file or the instruction could not be used.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// CompletionError wraps a failure of the completion client.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("no suggestion available: %v", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// DiffComputationError reports an internal inconsistency between the
// original text, the suggestion and the computed hunks.
type DiffComputationError struct {
	Err error
}

func (e *DiffComputationError) Error() string {
	return fmt.Sprintf("failed to compute changes: %v", e.Err)
}

func (e *DiffComputationError) Unwrap() error {
	return e.Err
}
