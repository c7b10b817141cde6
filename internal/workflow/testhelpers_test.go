package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/notifications"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.VOD.CacheEnabled = false
	cfg.Workflow.QueuePollInterval = 0
	return cfg
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		default:
		}
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(25 * time.Millisecond)
	}
}

type stubStage struct {
	name    string
	execute func(ctx context.Context, pc pipeline.Context) (pipeline.Context, error)
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name}
}

func (s *stubStage) Name() string { return s.name }

func (s *stubStage) Execute(ctx context.Context, pc pipeline.Context) (pipeline.Context, error) {
	if s.execute != nil {
		return s.execute(ctx, pc)
	}
	return pc, nil
}

func (s *stubStage) Retryable() bool { return false }

func (s *stubStage) MaxRetries() int { return 0 }

type recordedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: event, payload: payload})
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func (r *recordingNotifier) count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, rec := range r.events {
		if rec.event == event {
			total++
		}
	}
	return total
}

func (r *recordingNotifier) payloadFor(event notifications.Event) (notifications.Payload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.events {
		if rec.event == event {
			return rec.payload, true
		}
	}
	return nil, false
}
