package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUnavailable reports that no daemon answered on the configured bind
// address. Callers use it to fall back to direct queue access.
var ErrUnavailable = errors.New("daemon api unreachable")

// StatusError is an error response the daemon returned over HTTP.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon api: http %d", e.StatusCode)
}

// IsNotFound reports whether err is a daemon response with HTTP status 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client calls the daemon's REST API. The zero value is not usable; construct
// with NewClient.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient returns a client for the daemon API at bind, either a host:port
// pair or a full URL. The token may be empty when the daemon runs without
// authentication.
func NewClient(bind, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    base,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// BaseURL exposes the resolved endpoint, mainly for diagnostics output.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes the unauthenticated liveness endpoint. A nil error means a
// daemon is serving the API.
func (c *Client) Health(ctx context.Context) error {
	var resp HealthResponse
	return c.do(ctx, http.MethodGet, "/api/health", nil, &resp)
}

// Status retrieves the daemon status snapshot.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitJob enqueues a VOD for processing.
func (c *Client) SubmitJob(ctx context.Context, req SubmitJobRequest) (*SubmitJobResponse, error) {
	var resp SubmitJobResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListJobs returns jobs, optionally filtered by status names.
func (c *Client) ListJobs(ctx context.Context, statuses []string) ([]Job, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		query := url.Values{}
		for _, status := range statuses {
			query.Add("status", status)
		}
		path += "?" + query.Encode()
	}
	var resp JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// GetJob fetches a single job. Missing jobs surface as a 404 StatusError.
func (c *Client) GetJob(ctx context.Context, id int64) (*Job, error) {
	var resp JobResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/jobs/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// RemoveJob deletes a job from the queue.
func (c *Client) RemoveJob(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/jobs/%d", id), nil, nil)
}

// RetryJob requeues one failed job and returns its refreshed record.
func (c *Client) RetryJob(ctx context.Context, id int64) (*Job, error) {
	var resp JobResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/jobs/%d/retry", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// ResumeJob restarts a job from the named stage, or from the first stage when
// from is empty. The daemon validates synchronously and runs the pipeline in
// the background; follow the progress stream for the outcome.
func (c *Client) ResumeJob(ctx context.Context, id int64, from string) (*Job, error) {
	var resp JobResponse
	req := ResumeJobRequest{From: from}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/jobs/%d/resume", id), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// ClearQueue removes every job and returns the removed count.
func (c *Client) ClearQueue(ctx context.Context) (int64, error) {
	return c.count(ctx, http.MethodDelete, "/api/queue")
}

// ClearCompleted removes completed jobs.
func (c *Client) ClearCompleted(ctx context.Context) (int64, error) {
	return c.count(ctx, http.MethodDelete, "/api/queue/completed")
}

// ClearFailed removes failed jobs.
func (c *Client) ClearFailed(ctx context.Context) (int64, error) {
	return c.count(ctx, http.MethodDelete, "/api/queue/failed")
}

// ResetStuck returns in-flight jobs to queued.
func (c *Client) ResetStuck(ctx context.Context) (int64, error) {
	return c.count(ctx, http.MethodPost, "/api/queue/reset")
}

// RetryAllFailed requeues every failed job.
func (c *Client) RetryAllFailed(ctx context.Context) (int64, error) {
	return c.count(ctx, http.MethodPost, "/api/queue/retry")
}

// QueueHealth returns aggregate queue counters.
func (c *Client) QueueHealth(ctx context.Context) (*QueueHealthResponse, error) {
	var resp QueueHealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth returns queue database diagnostics.
func (c *Client) DatabaseHealth(ctx context.Context) (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue/database", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification(ctx context.Context) (*NotificationTestResponse, error) {
	var resp NotificationTestResponse
	if err := c.do(ctx, http.MethodPost, "/api/notifications/test", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FollowProgress streams progress events for a job until it reaches a
// terminal state, the server closes the stream, or fn returns an error. fn
// runs once per frame.
func (c *Client) FollowProgress(ctx context.Context, id int64, fn func(ProgressEvent) error) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + fmt.Sprintf("/api/jobs/%d/progress", id)
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return decodeErrorResponse(resp)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var event ProgressEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read progress stream: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
		if event.Type == "terminal" {
			return nil
		}
	}
}

func (c *Client) count(ctx context.Context, method, path string) (int64, error) {
	var resp CountResponse
	if err := c.do(ctx, method, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeErrorResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeErrorResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload ErrorResponse
	if json.Unmarshal(data, &payload) == nil && strings.TrimSpace(payload.Error) != "" {
		return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &StatusError{StatusCode: resp.StatusCode}
}
