package logging

import (
	"context"
	"log/slog"

	"clipforge/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for queue job identifiers.
	FieldJobID = "job_id"
	// FieldVODID is the standardized structured logging key for source VOD identifiers.
	FieldVODID = "vod_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldClipID is the standardized structured logging key for extracted clip identifiers.
	FieldClipID = "clip_id"
	// FieldEventType categorizes log events for downstream filtering (e.g. "stage_failed").
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing remediation hint.
	FieldErrorHint = "error_hint"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldProgressStage is the standardized structured logging key for progress stage labels.
	FieldProgressStage = "progress_stage"
	// FieldProgressPercent is the standardized structured logging key for progress percentages.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage is the standardized structured logging key for progress detail text.
	FieldProgressMessage = "progress_message"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldJobID, id))
	}
	if vodID, ok := services.VODIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldVODID, vodID))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
