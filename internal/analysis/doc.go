// Package analysis implements the signal-analysis pipeline stage.
//
// The stage demuxes the VOD audio track, samples loudness levels, fetches
// the chat log and viewer-made clips for the VOD (through the badger cache
// when enabled), runs the three signal analyzers, and fuses their moments
// into the ranked list the extraction stage cuts from. Chat and viewer-clip
// sources are optional: fetch failures degrade to audio-only analysis
// rather than failing the job.
package analysis
