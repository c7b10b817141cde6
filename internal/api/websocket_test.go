package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"clipforge/internal/api"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

func wsURL(baseURL, path string) string {
	return "ws" + strings.TrimPrefix(baseURL, "http") + path
}

func TestServerProgressStream(t *testing.T) {
	f := newTestServer(t, "")
	ctx := context.Background()

	job := testsupport.NewJob(t, f.store, "vod-ws", "https://vods.example/videos/ws")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(f.baseURL, fmt.Sprintf("/api/jobs/%d/progress", job.ID)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	var first api.ProgressEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first frame: %v", err)
	}
	if first.Type != "progress" || first.Status != string(queue.StatusQueued) {
		t.Fatalf("unexpected first frame %+v", first)
	}
	if first.JobID != job.ID {
		t.Fatalf("expected job %d, got %d", job.ID, first.JobID)
	}

	job.Status = queue.StatusCompleted
	job.SetProgressComplete("Completed", "Clips ready")
	if err := f.store.Update(ctx, job); err != nil {
		t.Fatalf("complete job: %v", err)
	}

	var terminal api.ProgressEvent
	for {
		var event api.ProgressEvent
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if event.Type == "terminal" {
			terminal = event
			break
		}
	}
	if terminal.Status != string(queue.StatusCompleted) {
		t.Fatalf("expected completed terminal frame, got %+v", terminal)
	}
	if terminal.Progress.Percent != 100 {
		t.Fatalf("expected 100%% progress, got %v", terminal.Progress.Percent)
	}

	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal closure, got %v", err)
	}
}

func TestServerProgressStreamMissingJob(t *testing.T) {
	f := newTestServer(t, "")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(f.baseURL, "/api/jobs/424242/progress"), nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("expected handshake failure, got %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %+v", resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
}
