// Package chatlog retrieves audience signals for a recording from external
// metadata sources: the chat replay log and viewer-created clip markers.
//
// Both sources are optional. An unconfigured source, or a VOD the source
// has never seen, produces empty results rather than an error so the
// analysis stage can fuse whatever signals are available.
package chatlog
