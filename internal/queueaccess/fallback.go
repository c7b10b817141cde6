package queueaccess

import (
	"context"
	"fmt"

	"clipforge/internal/api"
	"clipforge/internal/queue"
)

// Session represents a queue access handle and its cleanup function.
type Session struct {
	Access Access

	// Live reports whether the session talks to a running daemon. Commands
	// use it to warn that direct store changes are invisible to the daemon's
	// in-memory state.
	Live bool

	close func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback prefers API-backed access when a daemon answers the health
// probe, and falls back to direct store access otherwise.
func OpenWithFallback(
	ctx context.Context,
	client *api.Client,
	openStore func() (*queue.Store, error),
) (Session, error) {
	if client != nil {
		if err := client.Health(ctx); err == nil {
			return Session{
				Access: NewClientAccess(client),
				Live:   true,
			}, nil
		}
	}

	if openStore == nil {
		return Session{}, fmt.Errorf("open queue store: no store opener configured")
	}
	store, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(store),
		close:  store.Close,
	}, nil
}
