// Package pipeline sequences the stages that turn a queued VOD job into
// uploaded highlight clips.
//
// An Orchestrator owns one job at a time. It builds a job-scoped Context,
// hands it to each Stage in the fixed declared order, and replaces its
// canonical copy with whatever the stage returns. Stages are stateless;
// retry policy lives on the stage (Retryable, MaxRetries) and the
// orchestrator applies linear backoff between attempts. Validation errors
// fail immediately without consuming retries.
//
// Progress flows one way: the executing stage raises Context.Progress
// inside its own sub-range, and the orchestrator reports the current value
// to a ProgressSink at stage boundaries. On terminal failure the registered
// cleanup paths are removed best-effort and the failure is wrapped in a
// PipelineError carrying the context snapshot, which callers use to persist
// partial artifacts for a later resume.
package pipeline
