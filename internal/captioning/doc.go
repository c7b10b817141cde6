// Package captioning implements the subtitle pipeline stage: per-clip
// audio demux, WhisperX transcription, word-grouped caption cues rendered
// as an ASS script, and a final burn-in encode. The stage degrades
// gracefully when transcription is disabled or fails, because an
// uncaptioned clip is still a publishable clip.
package captioning
