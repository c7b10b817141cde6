package vodcache_test

import (
	"testing"
	"time"

	"clipforge/internal/signals"
	"clipforge/internal/vodcache"
)

func openCache(t *testing.T) *vodcache.Cache {
	t.Helper()
	cache, err := vodcache.Open(t.TempDir(), time.Hour, nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := cache.Close(); err != nil {
			t.Errorf("close cache: %v", err)
		}
	})
	return cache
}

func TestMessagesRoundTrip(t *testing.T) {
	cache := openCache(t)

	messages := []signals.ChatMessage{
		{Timestamp: 10.5, Username: "a", Message: "KEKW"},
		{Timestamp: 11.0, Username: "b", Message: "no way"},
	}
	if err := cache.PutMessages("vod123", messages); err != nil {
		t.Fatalf("PutMessages returned error: %v", err)
	}

	got, found, err := cache.GetMessages("vod123")
	if err != nil {
		t.Fatalf("GetMessages returned error: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0].Message != "KEKW" || got[1].Username != "b" {
		t.Fatalf("unexpected messages %+v", got)
	}
}

func TestClipsRoundTrip(t *testing.T) {
	cache := openCache(t)

	clips := []signals.ViewerClip{
		{Timestamp: 845, Duration: 28.5, ViewCount: 1200, Title: "THE play"},
	}
	if err := cache.PutClips("vod123", clips); err != nil {
		t.Fatalf("PutClips returned error: %v", err)
	}

	got, found, err := cache.GetClips("vod123")
	if err != nil {
		t.Fatalf("GetClips returned error: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].ViewCount != 1200 {
		t.Fatalf("unexpected clips %+v", got)
	}
}

func TestMissingEntryMissesWithoutError(t *testing.T) {
	cache := openCache(t)

	if _, found, err := cache.GetMessages("unknown"); err != nil || found {
		t.Fatalf("expected clean miss, found=%v err=%v", found, err)
	}
	if _, found, err := cache.GetClips("unknown"); err != nil || found {
		t.Fatalf("expected clean miss, found=%v err=%v", found, err)
	}
}

func TestKeysAreScopedByKind(t *testing.T) {
	cache := openCache(t)

	if err := cache.PutMessages("vod123", []signals.ChatMessage{{Timestamp: 1, Message: "hi"}}); err != nil {
		t.Fatalf("PutMessages returned error: %v", err)
	}
	if _, found, err := cache.GetClips("vod123"); err != nil || found {
		t.Fatalf("expected clips miss for chat-only vod, found=%v err=%v", found, err)
	}
}

func TestFlushDropsBothKinds(t *testing.T) {
	cache := openCache(t)

	if err := cache.PutMessages("vod123", []signals.ChatMessage{{Timestamp: 1, Message: "hi"}}); err != nil {
		t.Fatal(err)
	}
	if err := cache.PutClips("vod123", []signals.ViewerClip{{Timestamp: 2}}); err != nil {
		t.Fatal(err)
	}

	if err := cache.Flush("vod123"); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	if _, found, _ := cache.GetMessages("vod123"); found {
		t.Fatal("expected chat entry to be flushed")
	}
	if _, found, _ := cache.GetClips("vod123"); found {
		t.Fatal("expected clips entry to be flushed")
	}
}

func TestDisabledCacheNoOps(t *testing.T) {
	cache, err := vodcache.Open("", time.Hour, nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if cache.Enabled() {
		t.Fatal("expected cache without a path to be disabled")
	}
	if err := cache.PutMessages("vod123", []signals.ChatMessage{{Timestamp: 1}}); err != nil {
		t.Fatalf("expected no-op store, got %v", err)
	}
	if _, found, err := cache.GetMessages("vod123"); err != nil || found {
		t.Fatalf("expected miss on disabled cache, found=%v err=%v", found, err)
	}
	if err := cache.Flush("vod123"); err != nil {
		t.Fatalf("expected no-op flush, got %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("expected no-op close, got %v", err)
	}
}
