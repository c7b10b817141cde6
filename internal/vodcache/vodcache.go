package vodcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"

	"clipforge/internal/logging"
	"clipforge/internal/signals"
)

const (
	chatKeyPrefix  = "chat/"
	clipsKeyPrefix = "clips/"
)

// Cache persists fetched chat replays and viewer clip metadata so repeated
// analysis of the same VOD skips the network. Entries expire after the
// configured TTL.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Open opens the cache under dir. An empty dir disables the cache: lookups
// miss and stores become no-ops.
func Open(dir string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "vodcache")

	if dir == "" {
		return &Cache{logger: logger}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	logger.Debug("vod cache opened",
		logging.String("path", dir),
		logging.Duration("ttl", ttl),
	)
	return &Cache{db: db, ttl: ttl, logger: logger}, nil
}

// Enabled reports whether the cache is backed by storage.
func (c *Cache) Enabled() bool {
	return c != nil && c.db != nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.db.Close()
}

// PutMessages stores the chat replay for a VOD.
func (c *Cache) PutMessages(vodID string, messages []signals.ChatMessage) error {
	return c.put(chatKeyPrefix+vodID, messages)
}

// GetMessages returns the cached chat replay for a VOD. The second return
// reports whether a live entry was found.
func (c *Cache) GetMessages(vodID string) ([]signals.ChatMessage, bool, error) {
	var messages []signals.ChatMessage
	found, err := c.get(chatKeyPrefix+vodID, &messages)
	if err != nil || !found {
		return nil, false, err
	}
	return messages, true, nil
}

// PutClips stores the viewer clip markers for a VOD.
func (c *Cache) PutClips(vodID string, clips []signals.ViewerClip) error {
	return c.put(clipsKeyPrefix+vodID, clips)
}

// GetClips returns the cached viewer clip markers for a VOD.
func (c *Cache) GetClips(vodID string) ([]signals.ViewerClip, bool, error) {
	var clips []signals.ViewerClip
	found, err := c.get(clipsKeyPrefix+vodID, &clips)
	if err != nil || !found {
		return nil, false, err
	}
	return clips, true, nil
}

// Flush drops all cached metadata for a VOD so the next analysis refetches.
func (c *Cache) Flush(vodID string) error {
	if vodID == "" {
		return errors.New("vod id cannot be empty")
	}
	if !c.Enabled() {
		return nil
	}
	return c.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{chatKeyPrefix + vodID, clipsKeyPrefix + vodID} {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

func (c *Cache) put(key string, value any) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	c.logger.Debug("cached vod metadata", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

func (c *Cache) get(key string, out any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache entry: %w", err)
	}
	return true, nil
}
