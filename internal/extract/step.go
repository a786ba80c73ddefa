package extract

import "fmt"

// Step names reported in StepError.
const (
	StepParse    = "parse"
	StepMetadata = "metadata"
	StepText     = "text"
	StepLinks    = "links"
	StepMedia    = "media"
)

// StepResult is the outcome of one extraction step. Value is always usable:
// on failure it holds the degraded default.
type StepResult[T any] struct {
	Value T
	Err   error
}

// OK reports whether the step succeeded.
func (r StepResult[T]) OK() bool {
	return r.Err == nil
}

func succeed[T any](v T) StepResult[T] {
	return StepResult[T]{Value: v}
}

func degrade[T any](v T, err error) StepResult[T] {
	return StepResult[T]{Value: v, Err: err}
}

// StepError records which step failed on which page.
type StepError struct {
	Step string
	URL  string
	Err  error
}

// Error implements error.
func (e StepError) Error() string {
	return fmt.Sprintf("%s extraction failed for %s: %v", e.Step, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e StepError) Unwrap() error {
	return e.Err
}
