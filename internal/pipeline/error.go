package pipeline

import "fmt"

// PipelineError wraps a stage failure after retries are exhausted. Context
// is the orchestrator's snapshot at the point of failure, so callers can
// persist artifact paths for a later resume.
type PipelineError struct {
	Stage   string
	Context Context
	Cause   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Cause)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}
