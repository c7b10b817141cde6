// Package preflight provides readiness checks for external services
// and filesystem paths that ClipForge depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before processing each queued job.
//     If any check fails, the lane halts to avoid wasting hours on a doomed run.
//   - The CLI "clipforge doctor" command uses individual check functions
//     (CheckChatSource, CheckDirectoryAccess) to display service health.
//
// Each check is gated by its config value -- unconfigured features are skipped.
package preflight
