// Package storage publishes finished clips into the library.
//
// The Library writes artifacts under a configured root with atomic
// copy-then-rename semantics and collision-safe naming, and derives
// public URLs from an optional base url. The upload stage is its only
// writer; anything serving the library reads the paths it returns.
package storage
