package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDedupWindowLapses(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	current := time.Unix(1_700_000_000, 0)
	svc := &ntfyService{
		endpoint:    server.URL,
		client:      server.Client(),
		enabled:     map[Event]bool{EventJobFailed: true},
		dedupWindow: 10 * time.Minute,
		now:         func() time.Time { return current },
		lastSent:    make(map[string]time.Time),
	}

	payload := Payload{"title": "Ranked grind", "stage": "extract", "error": "ffmpeg exited 1"}
	for i := 0; i < 2; i++ {
		if err := svc.Publish(context.Background(), EventJobFailed, payload); err != nil {
			t.Fatalf("publish returned error: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one send inside the window, got %d", got)
	}

	current = current.Add(11 * time.Minute)
	if err := svc.Publish(context.Background(), EventJobFailed, payload); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected a fresh send after the window lapsed, got %d", got)
	}
	if len(svc.lastSent) != 1 {
		t.Fatalf("expected stale entries to be pruned, got %d", len(svc.lastSent))
	}
}
