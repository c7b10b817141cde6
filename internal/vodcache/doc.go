// Package vodcache caches fetched VOD metadata between pipeline runs.
//
// Chat replays and viewer clip lists are immutable once a broadcast ends,
// so re-analyzing a VOD should not refetch them. Entries live in a Badger
// database under the data directory and expire after the configured TTL.
// With caching disabled the cache still satisfies its interface: every
// lookup misses and every store is a no-op.
package vodcache
