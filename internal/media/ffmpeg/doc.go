// Package ffmpeg wraps the ffmpeg binary for clip production.
//
// The Executor runs ffmpeg with a fixed preamble (-y, -hide_banner,
// -progress pipe:2) and parses the machine-readable progress stream so
// callers receive periodic Progress callbacks. Higher-level helpers
// cover the operations the pipeline needs: audio extraction and
// loudness sampling for analysis, clip cutting with quality presets,
// center-crop reframing to a target aspect ratio, thumbnail snapshots,
// and subtitle burn-in.
//
// Errors returned here are plain; stage packages attach their own
// classification markers.
package ffmpeg
