// Package whisperx runs WhisperX transcription through the uvx launcher.
//
// The captioning stage feeds it per-clip WAV audio and gets back word-level
// timing: WhisperX writes SRT and JSON artifacts next to the audio, and the
// JSON payload is parsed into a Transcript with segments, words, and
// alignment scores.
//
// Configuration options (model, CUDA, VAD method) are passed via Config.
package whisperx
