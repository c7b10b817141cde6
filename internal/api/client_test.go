package api_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/daemon"
	"clipforge/internal/queue"
)

func newTestClient(t *testing.T, f *serverFixture, token string) *api.Client {
	t.Helper()
	return api.NewClient(strings.TrimPrefix(f.baseURL, "http://"), token)
}

func TestClientRoundTrip(t *testing.T) {
	fx := newTestServer(t, "")
	client := newTestClient(t, fx, "")
	ctx := context.Background()

	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}

	submitted, err := client.SubmitJob(ctx, api.SubmitJobRequest{SourceURL: "https://vods.example.com/v/777"})
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	if !submitted.Created {
		t.Fatal("expected first submission to create a job")
	}
	if submitted.Job.Status != string(queue.StatusQueued) {
		t.Fatalf("unexpected status %q", submitted.Job.Status)
	}

	again, err := client.SubmitJob(ctx, api.SubmitJobRequest{SourceURL: "https://vods.example.com/v/777"})
	if err != nil {
		t.Fatalf("SubmitJob duplicate: %v", err)
	}
	if again.Created || again.Job.ID != submitted.Job.ID {
		t.Fatalf("expected dedup to return job %d, got created=%v id=%d", submitted.Job.ID, again.Created, again.Job.ID)
	}

	fetched, err := client.GetJob(ctx, submitted.Job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if fetched.SourceURL != "https://vods.example.com/v/777" {
		t.Fatalf("unexpected source url %q", fetched.SourceURL)
	}

	jobs, err := client.ListJobs(ctx, []string{"queued"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 queued job, got %d", len(jobs))
	}
	if _, err := client.ListJobs(ctx, []string{"transcoding"}); err == nil {
		t.Fatal("expected unknown status filter to error")
	}

	health, err := client.QueueHealth(ctx)
	if err != nil {
		t.Fatalf("QueueHealth: %v", err)
	}
	if health.Total != 1 || health.Queued != 1 {
		t.Fatalf("unexpected queue health %+v", health)
	}

	dbHealth, err := client.DatabaseHealth(ctx)
	if err != nil {
		t.Fatalf("DatabaseHealth: %v", err)
	}
	if !dbHealth.TableExists || dbHealth.TotalJobs != 1 {
		t.Fatalf("unexpected database health %+v", dbHealth)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Workflow.Running {
		t.Fatal("workflow should not be running")
	}
	if len(status.Workflow.StageNames) == 0 {
		t.Fatal("expected configured stage names")
	}

	if err := client.RemoveJob(ctx, submitted.Job.ID); err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	if _, err := client.GetJob(ctx, submitted.Job.ID); !api.IsNotFound(err) {
		t.Fatalf("expected not-found after removal, got %v", err)
	}
}

func TestClientQueueMaintenance(t *testing.T) {
	fx := newTestServer(t, "")
	client := newTestClient(t, fx, "")
	ctx := context.Background()

	failed := mustSubmit(t, fx, "https://vods.example.com/v/801")
	failed.Status = queue.StatusFailed
	failed.SetFailed("download exploded")
	if err := fx.store.Update(ctx, failed); err != nil {
		t.Fatalf("update failed job: %v", err)
	}
	stuck := mustSubmit(t, fx, "https://vods.example.com/v/802")
	stuck.Status = queue.StatusAnalyzing
	if err := fx.store.Update(ctx, stuck); err != nil {
		t.Fatalf("update stuck job: %v", err)
	}

	reset, err := client.ResetStuck(ctx)
	if err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset job, got %d", reset)
	}

	retried, err := client.RetryAllFailed(ctx)
	if err != nil {
		t.Fatalf("RetryAllFailed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 retried job, got %d", retried)
	}

	cleared, err := client.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if cleared != 0 {
		t.Fatalf("expected no completed jobs, got %d", cleared)
	}

	removed, err := client.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed jobs, got %d", removed)
	}
}

func TestClientRetryJob(t *testing.T) {
	fx := newTestServer(t, "")
	client := newTestClient(t, fx, "")
	ctx := context.Background()

	job := mustSubmit(t, fx, "https://vods.example.com/v/810")
	job.Status = queue.StatusFailed
	job.SetFailed("upload rejected")
	if err := fx.store.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	retried, err := client.RetryJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryJob: %v", err)
	}
	if retried.Status != string(queue.StatusQueued) {
		t.Fatalf("expected queued after retry, got %q", retried.Status)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("expected cleared error, got %q", retried.ErrorMessage)
	}

	var se *api.StatusError
	if _, err := client.RetryJob(ctx, job.ID); !errors.As(err, &se) || se.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict retrying non-failed job, got %v", err)
	}
}

func TestClientAuth(t *testing.T) {
	fx := newTestServer(t, "hunter2")
	ctx := context.Background()

	anon := newTestClient(t, fx, "")
	if err := anon.Health(ctx); err != nil {
		t.Fatalf("Health should skip auth: %v", err)
	}
	var se *api.StatusError
	if _, err := anon.Status(ctx); !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", err)
	}

	authed := newTestClient(t, fx, "hunter2")
	if _, err := authed.Status(ctx); err != nil {
		t.Fatalf("Status with token: %v", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	if err := listener.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}

	client := api.NewClient(addr, "")
	if err := client.Health(context.Background()); !errors.Is(err, api.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientFollowProgress(t *testing.T) {
	fx := newTestServer(t, "")
	client := newTestClient(t, fx, "")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job := mustSubmit(t, fx, "https://vods.example.com/v/820")
	job.Status = queue.StatusCompleted
	job.SetProgressComplete("Completed", "Clips ready")
	if err := fx.store.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	var events []api.ProgressEvent
	err := client.FollowProgress(ctx, job.ID, func(event api.ProgressEvent) error {
		events = append(events, event)
		return nil
	})
	if err != nil {
		t.Fatalf("FollowProgress: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected at least one progress event")
	}
	last := events[len(events)-1]
	if last.Type != "terminal" || last.Status != string(queue.StatusCompleted) {
		t.Fatalf("unexpected final event %+v", last)
	}

	if err := client.FollowProgress(ctx, 99999, func(api.ProgressEvent) error { return nil }); !api.IsNotFound(err) {
		t.Fatalf("expected not-found for missing job, got %v", err)
	}
}

func mustSubmit(t *testing.T, f *serverFixture, sourceURL string) *queue.Job {
	t.Helper()
	job, _, err := f.daemon.AddVOD(context.Background(), daemon.IngestRequest{SourceURL: sourceURL})
	if err != nil {
		t.Fatalf("AddVOD(%s): %v", sourceURL, err)
	}
	return job
}
