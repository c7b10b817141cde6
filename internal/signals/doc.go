// Package signals defines the data model shared by the highlight
// analyzers and the fusion engine.
//
// The types split into three groups:
//   - raw inputs: LevelSample, ChatMessage, ViewerClip
//   - single-source detections: AudioMoment, ChatMoment
//   - fused output: SignalMoment with its per-source breakdown
//
// Moments are produced once per analysis run and treated as immutable
// afterwards. Scores are on a 0-100 scale across all sources so the
// fusion engine can weight them without per-source rescaling.
package signals
