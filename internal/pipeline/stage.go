package pipeline

import "context"

// Stage is one named unit of pipeline work. Stages are stateless; all
// per-job state lives in the Context a stage receives and returns.
type Stage interface {
	// Name identifies the stage in logs, progress reports, and resume requests.
	Name() string
	// Execute runs the stage against the supplied context and returns the
	// updated copy. The returned context is discarded when err is non-nil.
	Execute(ctx context.Context, pc Context) (Context, error)
	// Retryable reports whether a failed Execute may be attempted again.
	Retryable() bool
	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries() int
}

// ErrorHook lets a stage observe its own failures before the orchestrator
// decides to retry or fail. Hook errors are logged, never propagated.
type ErrorHook interface {
	OnError(ctx context.Context, pc Context, stageErr error) error
}

// ProgressSink observes job-visible state at stage boundaries and on
// terminal completion or failure. The daemon backs it with the queue store;
// tests use an in-memory recorder.
type ProgressSink interface {
	ReportProgress(ctx context.Context, report Report)
}

// Report is one progress observation. Snapshot is a copy of the
// orchestrator's canonical context at the boundary, so sinks can persist
// artifact paths alongside progress without reaching into the run.
type Report struct {
	Stage    string
	Message  string
	Percent  float64
	Done     bool
	Failed   bool
	Snapshot Context
}

type nopSink struct{}

func (nopSink) ReportProgress(context.Context, Report) {}

// NopSink returns a sink that discards every report.
func NopSink() ProgressSink {
	return nopSink{}
}
