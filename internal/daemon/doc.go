// Package daemon coordinates the long-running clipforge process.
//
// It wires configuration, queue storage, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon exposes queue maintenance helpers, validates and enqueues VOD
// submissions, resumes interrupted jobs, emits dependency health summaries,
// and owns the notification test hook.
//
// Keep orchestration logic here: individual pipeline stages should live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
