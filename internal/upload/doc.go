// Package upload implements the final pipeline stage: publishing clips
// and thumbnails into the library under a per-VOD prefix and recording
// their stored paths and public URLs.
package upload
