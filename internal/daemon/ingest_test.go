package daemon_test

import (
	"context"
	"testing"

	"clipforge/internal/daemon"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

func TestDaemonAddVOD(t *testing.T) {
	notifier := &recordingNotifier{}
	d, store := newTestDaemon(t, notifier)
	ctx := context.Background()

	job, created, err := d.AddVOD(ctx, daemon.IngestRequest{
		SourceURL: "https://vods.example/videos/123456789",
		UserID:    "streamer",
	})
	if err != nil {
		t.Fatalf("AddVOD failed: %v", err)
	}
	if !created {
		t.Fatal("expected job to be created")
	}
	if job.VODID != "123456789" {
		t.Fatalf("expected vod id derived from url, got %q", job.VODID)
	}
	if job.UserID != "streamer" {
		t.Fatalf("expected user id persisted, got %q", job.UserID)
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("expected queued status, got %s", job.Status)
	}
	if got := notifier.count(notifications.EventJobQueued); got != 1 {
		t.Fatalf("expected one queued notification, got %d", got)
	}

	dup, created, err := d.AddVOD(ctx, daemon.IngestRequest{SourceURL: "https://vods.example/videos/123456789"})
	if err != nil {
		t.Fatalf("AddVOD duplicate failed: %v", err)
	}
	if created {
		t.Fatal("expected duplicate submission to reuse the live job")
	}
	if dup.ID != job.ID {
		t.Fatalf("expected existing job %d, got %d", job.ID, dup.ID)
	}
	if got := notifier.count(notifications.EventJobQueued); got != 1 {
		t.Fatalf("expected no second queued notification, got %d", got)
	}

	// A terminal job no longer blocks resubmission of the same VOD.
	job.Status = queue.StatusCompleted
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	again, created, err := d.AddVOD(ctx, daemon.IngestRequest{SourceURL: "https://vods.example/videos/123456789"})
	if err != nil {
		t.Fatalf("AddVOD resubmission failed: %v", err)
	}
	if !created {
		t.Fatal("expected a new job after the previous run completed")
	}
	if again.ID == job.ID {
		t.Fatal("expected a fresh job id for the resubmission")
	}
}

func TestDaemonAddVODValidation(t *testing.T) {
	d, _ := newTestDaemon(t, &recordingNotifier{})
	ctx := context.Background()

	cases := []struct {
		name string
		req  daemon.IngestRequest
	}{
		{"empty url", daemon.IngestRequest{}},
		{"unsupported scheme", daemon.IngestRequest{SourceURL: "ftp://vods.example/videos/1"}},
		{"missing host", daemon.IngestRequest{SourceURL: "https:///videos/1"}},
		{"no derivable id", daemon.IngestRequest{SourceURL: "https://vods.example"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := d.AddVOD(ctx, tc.req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDaemonAddVODExplicitID(t *testing.T) {
	d, _ := newTestDaemon(t, &recordingNotifier{})

	job, created, err := d.AddVOD(context.Background(), daemon.IngestRequest{
		SourceURL: "https://vods.example/watch?v=xyz",
		VODID:     "custom-42",
	})
	if err != nil {
		t.Fatalf("AddVOD failed: %v", err)
	}
	if !created {
		t.Fatal("expected job to be created")
	}
	if job.VODID != "custom-42" {
		t.Fatalf("expected explicit vod id kept, got %q", job.VODID)
	}
}

func TestDaemonQueueOps(t *testing.T) {
	d, store := newTestDaemon(t, &recordingNotifier{})
	ctx := context.Background()

	failed := testsupport.NewJob(t, store, "vod-a", "https://vods.example/videos/vod-a")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	testsupport.NewJob(t, store, "vod-b", "https://vods.example/videos/vod-b")

	jobs, err := d.ListQueue(ctx, nil)
	if err != nil {
		t.Fatalf("ListQueue failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	failedOnly, err := d.ListQueue(ctx, []queue.Status{queue.StatusFailed})
	if err != nil {
		t.Fatalf("ListQueue(failed) failed: %v", err)
	}
	if len(failedOnly) != 1 || failedOnly[0].ID != failed.ID {
		t.Fatalf("expected only the failed job, got %v", failedOnly)
	}

	retried, err := d.RetryFailed(ctx, nil)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 job retried, got %d", retried)
	}
	reloaded, err := d.GetQueueJob(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetQueueJob failed: %v", err)
	}
	if reloaded.Status != queue.StatusQueued {
		t.Fatalf("expected retried job queued, got %s", reloaded.Status)
	}

	health, err := d.QueueHealth(ctx)
	if err != nil {
		t.Fatalf("QueueHealth failed: %v", err)
	}
	if health.Total != 2 || health.Queued != 2 {
		t.Fatalf("unexpected health summary: %+v", health)
	}

	removed, err := d.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 jobs removed, got %d", removed)
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	d, _ := newTestDaemon(t, &recordingNotifier{})

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if sent {
		t.Fatal("expected no send without a configured topic")
	}
	if message == "" {
		t.Fatal("expected explanatory message")
	}
}
