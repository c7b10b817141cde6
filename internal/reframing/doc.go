// Package reframing implements the aspect-conversion pipeline stage.
// Extracted clips are center-cropped to the configured target aspect,
// 9:16 by default, so they fit short-form vertical players.
package reframing
