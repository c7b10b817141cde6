// Package workflow advances queued jobs through the clip production
// pipeline.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and runs
// one job at a time through the configured stage sequence (download,
// analysis, extraction, reframing, captioning, upload) while persisting
// progress and failure metadata back to the queue store. It also aggregates
// queue stats and emits notifications when a job starts, completes, or
// fails, plus a summary once the whole queue drains.
//
// Each job runs inside a pipeline.Orchestrator; the manager's progress sink
// mirrors stage boundaries into the job record, so a daemon restart resumes
// a reclaimed job from roughly where processing stopped.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching statusForStage the new mapping; this package is the
// authoritative home for that coordination logic.
package workflow
