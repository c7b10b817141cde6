package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// IngestRequest describes a VOD submission. SourceURL is required; VODID is
// derived from the URL when omitted. Settings carries the caller's clip
// settings as a JSON document and is stored verbatim on the job.
type IngestRequest struct {
	SourceURL string
	VODID     string
	UserID    string
	Settings  string
}

// AddVOD validates and enqueues a VOD for processing. Submissions for a VOD
// that already has a live job are deduplicated: the existing job is returned
// with created set to false, and no notification fires.
func (d *Daemon) AddVOD(ctx context.Context, req IngestRequest) (job *queue.Job, created bool, err error) {
	if d.store == nil {
		return nil, false, errors.New("queue store unavailable")
	}
	rawURL := strings.TrimSpace(req.SourceURL)
	if rawURL == "" {
		return nil, false, fmt.Errorf("%w: source url is required", services.ErrValidation)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, false, fmt.Errorf("%w: parse source url: %w", services.ErrValidation, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, false, fmt.Errorf("%w: unsupported url scheme %q", services.ErrValidation, parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, false, fmt.Errorf("%w: source url has no host", services.ErrValidation)
	}

	vodID := strings.TrimSpace(req.VODID)
	if vodID == "" {
		vodID = deriveVODID(parsed)
	}
	if vodID == "" {
		return nil, false, fmt.Errorf("%w: cannot derive a vod id from %q; pass one explicitly", services.ErrValidation, rawURL)
	}

	existing, err := d.store.FindActiveByVOD(ctx, vodID)
	if err != nil {
		return nil, false, fmt.Errorf("check for active job: %w", err)
	}
	if existing != nil {
		d.logger.Info("vod already queued",
			logging.Int64(logging.FieldJobID, existing.ID),
			logging.String(logging.FieldVODID, vodID),
		)
		return existing, false, nil
	}

	job, err = d.store.NewJob(ctx, vodID, rawURL, strings.TrimSpace(req.UserID), strings.TrimSpace(req.Settings))
	if err != nil {
		return nil, false, fmt.Errorf("enqueue vod: %w", err)
	}
	d.logger.Info("vod queued",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldVODID, vodID),
		logging.String("source_url", rawURL),
	)
	d.notifyQueued(ctx, job)
	return job, true, nil
}

// Resume reruns a job from the named pipeline stage, or from the beginning
// when fromStage is empty, rebuilding its context from recorded artifacts.
func (d *Daemon) Resume(ctx context.Context, id int64, fromStage string) (*queue.Job, error) {
	if d.workflow == nil {
		return nil, errors.New("workflow manager unavailable")
	}
	return d.workflow.ResumeJob(ctx, id, fromStage)
}

// deriveVODID extracts a stable VOD identifier from a source URL: the last
// non-empty path segment, which is the numeric VOD id on the platforms
// yt-dlp handles (e.g. https://www.twitch.tv/videos/123456789).
func deriveVODID(parsed *url.URL) string {
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segment := strings.TrimSpace(segments[i]); segment != "" {
			return segment
		}
	}
	return ""
}

func (d *Daemon) notifyQueued(ctx context.Context, job *queue.Job) {
	if d.notifier == nil || job == nil {
		return
	}
	err := d.notifier.Publish(ctx, notifications.EventJobQueued, notifications.Payload{
		"title": job.DisplayTitle(),
		"vodID": job.VODID,
	})
	if err != nil {
		d.logger.Debug("job queued notification failed", logging.Error(err))
	}
}
