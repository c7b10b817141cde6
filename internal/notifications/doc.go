// Package notifications pushes job lifecycle events to operators over ntfy.
//
// The daemon runs unattended, so finished and failed jobs announce
// themselves to the configured ntfy topic instead of waiting to be noticed
// in the queue. An unset topic swaps in a no-op service; workflow code
// publishes unconditionally and never checks whether notifications are on.
// Repeated identical events are suppressed for a short window so a job
// that flaps does not spam a phone.
//
// Alternative transports slot in behind the Service interface.
package notifications
