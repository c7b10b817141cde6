// Package ytdlp mediates access to the yt-dlp CLI used during ingestion.
//
// It normalizes command invocation, parses templated progress lines into
// typed ProgressUpdate values, resolves the final media path via yt-dlp's
// after-move print, and fetches recording metadata without downloading.
// Tests can swap in fakes so the download stage is exercised without
// touching the network.
package ytdlp
