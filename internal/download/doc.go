// Package download implements the first pipeline stage: fetching the
// source VOD with yt-dlp into the job work directory.
//
// The stage resolves metadata to seed the job title, enforces a minimum
// free-space floor on the work volume, and probes the downloaded file with
// ffprobe so later stages never operate on a truncated or audio-only
// download.
package download
