package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"clipforge/internal/config"
)

const userAgent = "Clipforge/0.1.0"

// Event identifies a workflow milestone worth pushing to the operator.
type Event string

const (
	EventJobQueued      Event = "job_queued"
	EventJobStarted     Event = "job_started"
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventQueueCompleted Event = "queue_completed"
)

// Payload carries the event-specific fields used to format a message.
// Formatting tolerates missing keys so callers only supply what they have.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobQueued:      cfg.Notifications.JobQueued,
			EventJobStarted:     cfg.Notifications.JobStarted,
			EventJobCompleted:   cfg.Notifications.JobCompleted,
			EventJobFailed:      cfg.Notifications.JobFailed,
			EventQueueCompleted: cfg.Notifications.QueueCompleted,
		},
		queueMinItems: cfg.Notifications.QueueMinItems,
		dedupWindow:   time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		now:           time.Now,
		lastSent:      make(map[string]time.Time),
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	enabled       map[Event]bool
	queueMinItems int
	dedupWindow   time.Duration
	now           func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	if event == EventQueueCompleted && n.queueMinItems > 0 {
		if payload.count("processed")+payload.count("failed") < n.queueMinItems {
			return nil
		}
	}
	msg := format(event, payload)
	if n.suppressed(event, msg.body) {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "Clipforge - Test",
		body:     "🧪 Notification system test",
		tags:     []string{"clipforge", "test"},
		priority: "low",
	})
}

func format(event Event, payload Payload) message {
	switch event {
	case EventJobQueued:
		return message{
			title: "Clipforge - Queued",
			body:  fmt.Sprintf("🎬 Queued: %s", payload.label()),
			tags:  []string{"clipforge", "job", "queued"},
		}
	case EventJobStarted:
		return message{
			title: "Clipforge - Processing",
			body:  fmt.Sprintf("Started processing: %s", payload.label()),
			tags:  []string{"clipforge", "job", "started"},
		}
	case EventJobCompleted:
		return message{
			title:    "Clipforge - Clips Ready",
			body:     fmt.Sprintf("✅ %d clips ready: %s", payload.count("clips"), payload.label()),
			tags:     []string{"clipforge", "job", "completed"},
			priority: "high",
		}
	case EventJobFailed:
		var builder strings.Builder
		builder.WriteString("❌ Failed")
		if stage := payload.text("stage"); stage != "" {
			builder.WriteString(" during ")
			builder.WriteString(stage)
		}
		builder.WriteString(": ")
		builder.WriteString(payload.label())
		if detail := payload.text("error"); detail != "" {
			builder.WriteString("\n")
			builder.WriteString(detail)
		}
		return message{
			title:    "Clipforge - Failed",
			body:     builder.String(),
			tags:     []string{"clipforge", "error", "alert"},
			priority: "high",
		}
	case EventQueueCompleted:
		processed := payload.count("processed")
		failed := payload.count("failed")
		duration := payload.span("duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		durationText := duration.String()
		if duration == 0 {
			durationText = "0s"
		}

		title := "Clipforge - Queue Complete"
		body := fmt.Sprintf("Queue processing complete: %d jobs processed in %s", processed, durationText)
		if failed > 0 {
			title = "Clipforge - Queue Complete (with errors)"
			body = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
		}
		return message{
			title: title,
			body:  body,
			tags:  []string{"clipforge", "queue", "completed"},
		}
	default:
		return message{
			title: "Clipforge",
			body:  payload.label(),
			tags:  []string{"clipforge"},
		}
	}
}

// label picks the friendliest identifier available for a job.
func (p Payload) label() string {
	for _, key := range []string{"title", "vodID", "url"} {
		if value := p.text(key); value != "" {
			return value
		}
	}
	return "VOD"
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) count(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) span(key string) time.Duration {
	if p == nil {
		return 0
	}
	if v, ok := p[key].(time.Duration); ok {
		return v
	}
	return 0
}

// suppressed reports whether an identical message fired inside the dedup
// window. Retried jobs tend to fail the same way repeatedly; one alert is
// enough until the window lapses.
func (n *ntfyService) suppressed(event Event, body string) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	key := string(event) + "\x00" + body
	now := n.now()

	n.mu.Lock()
	defer n.mu.Unlock()
	if sent, ok := n.lastSent[key]; ok && now.Sub(sent) < n.dedupWindow {
		return true
	}
	for k, sent := range n.lastSent {
		if now.Sub(sent) >= n.dedupWindow {
			delete(n.lastSent, k)
		}
	}
	n.lastSent[key] = now
	return false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) TestNotification(context.Context) error        { return nil }
