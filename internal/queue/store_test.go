package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.NewJob(ctx, "vod-1", "https://vods.example/vod-1", "streamer", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("expected new job queued, got %s", job.Status)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.VODID != "vod-1" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
	if fetched.SourceURL != "https://vods.example/vod-1" {
		t.Fatalf("unexpected source URL: %q", fetched.SourceURL)
	}

	found, err := store.FindByVOD(ctx, "vod-1")
	if err != nil {
		t.Fatalf("FindByVOD failed: %v", err)
	}
	if found == nil || found.ID != job.ID {
		t.Fatalf("expected to find inserted job, got %#v", found)
	}
}

func TestNewJobRequiresVODAndSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewJob(ctx, "", "https://vods.example/vod-1", "", ""); err == nil {
		t.Fatal("expected error when VOD ID missing")
	}
	if _, err := store.NewJob(ctx, "vod-1", "", "", ""); err == nil {
		t.Fatal("expected error when source URL missing")
	}
}

func TestFindActiveByVODSkipsTerminalJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	done, err := store.NewJob(ctx, "vod-1", "https://vods.example/vod-1", "", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	active, err := store.FindActiveByVOD(ctx, "vod-1")
	if err != nil {
		t.Fatalf("FindActiveByVOD failed: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active job for completed VOD, got %#v", active)
	}

	requeued, err := store.NewJob(ctx, "vod-1", "https://vods.example/vod-1", "", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	active, err = store.FindActiveByVOD(ctx, "vod-1")
	if err != nil {
		t.Fatalf("FindActiveByVOD failed: %v", err)
	}
	if active == nil || active.ID != requeued.ID {
		t.Fatalf("expected requeued job active, got %#v", active)
	}
}

func TestUpdatePersistsArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "vod-art", "https://vods.example/vod-art")
	job.Status = queue.StatusAnalyzing
	job.Title = "Ranked grind day 14"
	job.VideoPath = "/work/vod-art/source.mp4"
	job.AudioPath = "/work/vod-art/audio.wav"
	job.MomentsJSON = `[{"start":12.5,"end":44.0,"score":82}]`
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusAnalyzing {
		t.Fatalf("expected analyzing, got %s", got.Status)
	}
	if got.Title != "Ranked grind day 14" || got.VideoPath != "/work/vod-art/source.mp4" {
		t.Fatalf("unexpected persisted fields: %#v", got)
	}
	if got.MomentsJSON == "" {
		t.Fatal("expected moments JSON persisted")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	statuses := []queue.Status{
		queue.StatusDownloading,
		queue.StatusAnalyzing,
		queue.StatusExtracting,
		queue.StatusReframing,
		queue.StatusCaptioning,
		queue.StatusUploading,
	}
	var ids []int64
	for i, status := range statuses {
		job, err := store.NewJob(ctx, fmt.Sprintf("vod-stuck-%d", i), "https://vods.example/stuck", "", "")
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
		job.Status = status
		job.ProgressStage = string(status)
		job.ProgressPercent = 55
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(statuses) {
		t.Fatalf("expected %d jobs reset, got %d", len(statuses), count)
	}

	for idx, status := range statuses {
		updated, err := store.GetByID(ctx, ids[idx])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != queue.StatusQueued {
			t.Fatalf("%s: expected queued after reset, got %s", status, updated.Status)
		}
		if updated.ProgressPercent != 0 {
			t.Fatalf("%s: expected progress reset, got %f", status, updated.ProgressPercent)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", status)
		}
	}
}

func TestJobsByStatusOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewJob(ctx, "vod-a", "https://vods.example/a", "", ""); err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	b, err := store.NewJob(ctx, "vod-b", "https://vods.example/b", "", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	b.Status = queue.StatusAnalyzing
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	jobs, err := store.JobsByStatus(ctx, queue.StatusAnalyzing)
	if err != nil {
		t.Fatalf("JobsByStatus failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one analyzing job, got %d", len(jobs))
	}
	if jobs[0].VODID != "vod-b" {
		t.Fatalf("expected vod-b, got %s", jobs[0].VODID)
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a, err := store.NewJob(ctx, "vod-a", "https://vods.example/a", "", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	b, err := store.NewJob(ctx, "vod-b", "https://vods.example/b", "", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	b.Status = queue.StatusExtracting
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	c, err := store.NewJob(ctx, "vod-c", "https://vods.example/c", "", "")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	c.Status = queue.StatusFailed
	c.ErrorMessage = "boom"
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != a.ID || jobs[1].ID != b.ID || jobs[2].ID != c.ID {
		t.Fatalf("expected order a,b,c, got IDs %d,%d,%d", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}

	filtered, err := store.List(ctx, queue.StatusExtracting, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(filtered))
	}
	if filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("unexpected filtered order: got %d,%d", filtered[0].ID, filtered[1].ID)
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "vod-first", "https://vods.example/first")
	testsupport.NewJob(t, store, "vod-second", "https://vods.example/second")

	next, err := store.NextForStatuses(ctx, queue.StatusQueued)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest queued job, got %#v", next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusUploading)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no uploading job, got %#v", none)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a, err := store.NewJob(ctx, "vod-a", "https://vods.example/a", "", "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	b, err := store.NewJob(ctx, "vod-b", "https://vods.example/b", "", "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	for _, job := range []*queue.Job{a, b} {
		job.Status = queue.StatusFailed
		job.ErrorMessage = "boom"
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	updated, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 jobs retried, got %d", updated)
	}

	job, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("expected job A queued, got %s", job.Status)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", job.ErrorMessage)
	}

	// Mark B failed again and retry targeted selection.
	b.Status = queue.StatusFailed
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, err = store.RetryFailed(ctx, b.ID)
	if err != nil {
		t.Fatalf("RetryFailed targeted: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 job retried, got %d", updated)
	}
}

func TestUpdateHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "vod-hb", "https://vods.example/hb")
	job.Status = queue.StatusDownloading
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.UpdateHeartbeat(ctx, job.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	updated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.LastHeartbeat == nil {
		t.Fatal("expected last heartbeat to be set")
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	past := time.Now().Add(-2 * time.Hour).UTC()

	stale := testsupport.NewJob(t, store, "vod-stale", "https://vods.example/stale")
	stale.Status = queue.StatusExtracting
	stale.LastHeartbeat = &past
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update stale: %v", err)
	}

	fresh := testsupport.NewJob(t, store, "vod-fresh", "https://vods.example/fresh")
	fresh.Status = queue.StatusUploading
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update fresh: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat fresh: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 job reclaimed, got %d", count)
	}

	reclaimed, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID stale: %v", err)
	}
	if reclaimed.Status != queue.StatusQueued {
		t.Fatalf("expected stale job requeued, got %s", reclaimed.Status)
	}
	if reclaimed.LastHeartbeat != nil {
		t.Fatalf("expected stale heartbeat cleared, got %v", reclaimed.LastHeartbeat)
	}

	untouched, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID fresh: %v", err)
	}
	if untouched.Status != queue.StatusUploading {
		t.Fatalf("expected fresh job untouched, got %s", untouched.Status)
	}
	if untouched.LastHeartbeat == nil {
		t.Fatal("expected fresh heartbeat retained")
	}
}

func TestUpdateProgressPreservesHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "vod-progress", "https://vods.example/progress")
	job.Status = queue.StatusDownloading
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, job.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	before, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID before progress: %v", err)
	}
	if before.LastHeartbeat == nil {
		t.Fatal("expected heartbeat set before progress update")
	}
	origHeartbeat := *before.LastHeartbeat

	if err := store.UpdateProgress(ctx, job.ID, queue.StatusDownloading, "Downloading", "Fetching source video", 42.5); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	after, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID after progress: %v", err)
	}
	if after.LastHeartbeat == nil {
		t.Fatal("expected heartbeat preserved after progress update")
	}
	if !after.LastHeartbeat.Equal(origHeartbeat) {
		t.Fatalf("expected heartbeat unchanged, before %v after %v", origHeartbeat, after.LastHeartbeat)
	}
	if after.ProgressStage != "Downloading" || after.ProgressMessage != "Fetching source video" {
		t.Fatalf("expected progress fields persisted, got stage=%q message=%q", after.ProgressStage, after.ProgressMessage)
	}
	if after.ProgressPercent != 42.5 {
		t.Fatalf("expected progress percent 42.5, got %f", after.ProgressPercent)
	}
}

func TestClearHelpers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	queued := testsupport.NewJob(t, store, "vod-queued", "https://vods.example/queued")

	completed := testsupport.NewJob(t, store, "vod-done", "https://vods.example/done")
	completed.Status = queue.StatusCompleted
	if err := store.Update(ctx, completed); err != nil {
		t.Fatalf("Update completed: %v", err)
	}

	failed := testsupport.NewJob(t, store, "vod-failed", "https://vods.example/failed")
	failed.Status = queue.StatusFailed
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed job: %v", err)
	}

	removedCompleted, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if removedCompleted != 1 {
		t.Fatalf("expected 1 completed job cleared, got %d", removedCompleted)
	}

	removedFailed, err := store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed: %v", err)
	}
	if removedFailed != 1 {
		t.Fatalf("expected 1 failed job cleared, got %d", removedFailed)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != queued.ID {
		t.Fatalf("expected only queued job to remain, got %#v", remaining)
	}

	removedAll, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removedAll != 1 {
		t.Fatalf("expected 1 job cleared, got %d", removedAll)
	}
}

func TestHealthBucketsStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, "vod-q", "https://vods.example/q")

	processing := testsupport.NewJob(t, store, "vod-p", "https://vods.example/p")
	processing.Status = queue.StatusReframing
	if err := store.Update(ctx, processing); err != nil {
		t.Fatalf("Update processing: %v", err)
	}

	failed := testsupport.NewJob(t, store, "vod-f", "https://vods.example/f")
	failed.Status = queue.StatusFailed
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 3 || health.Queued != 1 || health.Processing != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestCheckHealthReportsColumns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, "vod-health", "https://vods.example/health")

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("expected healthy database, got %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("expected no missing columns, got %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalJobs != 1 {
		t.Fatalf("expected 1 job counted, got %d", health.TotalJobs)
	}
}
