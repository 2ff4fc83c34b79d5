// Package state stores mutable per-problem validation records keyed by
// (session, problem number). Two drivers are provided: an in-process map for
// single-node deployments and tests, and redis for shared deployments. Both
// enforce optimistic versioning so concurrent writers cannot silently clobber
// each other.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logicfirst/tutor/internal/model"
)

var (
	// ErrNotFound is returned when no record exists for the key.
	ErrNotFound = errors.New("validation state not found")
	// ErrVersionConflict is returned when a Put loses an optimistic race.
	ErrVersionConflict = errors.New("validation state version conflict")
)

// Store persists validation state per (session, problem).
type Store interface {
	// Get returns the record, or ErrNotFound.
	Get(ctx context.Context, sessionID string, problem int) (*model.ValidationState, error)
	// Put writes the record if its Version still matches the stored one,
	// then increments Version. A fresh record must carry Version 0.
	Put(ctx context.Context, vs *model.ValidationState) error
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, sessionID string, problem int) error
	// Close releases driver resources.
	Close() error
}

type config struct {
	ttl         time.Duration
	redisClient *redis.Client
	keyPrefix   string
}

// Option configures how a Store is built.
type Option func(*config)

// WithTTL sets how long idle records live (default 24h).
func WithTTL(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithRedisClient supplies the client for the redis driver.
func WithRedisClient(client *redis.Client) Option {
	return func(c *config) { c.redisClient = client }
}

// WithKeyPrefix overrides the redis key prefix (default "tutor:vstate:").
func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// New builds a Store for the named driver: "memory" or "redis".
func New(driver string, opts ...Option) (Store, error) {
	cfg := &config{
		ttl:       24 * time.Hour,
		keyPrefix: "tutor:vstate:",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch driver {
	case "memory", "":
		return newMemoryStore(cfg), nil
	case "redis":
		if cfg.redisClient == nil {
			return nil, errors.New("redis driver requires a client")
		}
		return newRedisStore(cfg), nil
	default:
		return nil, fmt.Errorf("unknown state driver %q", driver)
	}
}

func stateKey(prefix, sessionID string, problem int) string {
	return fmt.Sprintf("%s%s:%d", prefix, sessionID, problem)
}
