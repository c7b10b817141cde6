// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe against a local media file and decodes the
// streams and format sections. Helper methods on Result cover the checks
// the pipeline makes on downloaded VODs and produced clips: duration,
// resolution, stream counts, and frame rate.
package ffprobe
