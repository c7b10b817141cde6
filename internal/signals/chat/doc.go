// Package chat detects highlight-worthy bursts in a VOD chat log.
//
// A sliding window measures message velocity; lexical scoring of emotes,
// shouting, and repeated-character spam measures excitement within the
// window. The two are blended by a configurable weight and a merge pass
// collapses adjacent windows so emitted moments never sit closer together
// than one window size.
package chat
