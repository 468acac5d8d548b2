// Package seencache layers a Redis membership cache over a backing store so
// repeated HasSeen checks for hot URLs skip the database.
package seencache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
	"github.com/cjordan223/web-scrape-ai/internal/store"
)

const seenSetKey = "jobscraper:seen_urls"

// Backing is the store the cache fronts.
type Backing interface {
	store.Store
	ActiveRun(ctx context.Context) (bool, error)
}

// Client is the slice of the Redis API the cache uses. Narrowing it keeps
// tests free of a running server.
type Client interface {
	SIsMember(ctx context.Context, key string, member any) *redis.BoolCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	Close() error
}

// Store wraps a backing store with a Redis set holding canonical URLs.
// Redis is a cache, not the record: every miss falls through to the backing
// store, and Redis failures degrade to the backing store with a warning.
type Store struct {
	inner  Backing
	client Client
	logger *zap.Logger
}

// Config controls the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Open connects to Redis and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config, inner Backing, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return New(client, inner, logger), nil
}

// New wraps an existing client, primarily for testing.
func New(client Client, inner Backing, logger *zap.Logger) *Store {
	return &Store{inner: inner, client: client, logger: logger}
}

// Close releases the Redis client. The backing store is not closed.
func (s *Store) Close() error {
	return s.client.Close()
}

// HasSeen answers from the Redis set when possible, falling back to the
// backing store on a miss or a Redis error. Backing-store hits are written
// back into the set.
func (s *Store) HasSeen(ctx context.Context, canonicalURL string) (bool, error) {
	member, err := s.client.SIsMember(ctx, seenSetKey, canonicalURL).Result()
	if err != nil {
		s.logger.Warn("seen cache read failed, falling back to store", zap.Error(err))
		return s.inner.HasSeen(ctx, canonicalURL)
	}
	if member {
		return true, nil
	}
	seen, err := s.inner.HasSeen(ctx, canonicalURL)
	if err != nil {
		return false, err
	}
	if seen {
		if err := s.client.SAdd(ctx, seenSetKey, canonicalURL).Err(); err != nil {
			s.logger.Warn("seen cache backfill failed", zap.Error(err))
		}
	}
	return seen, nil
}

// MarkSeen writes through to the backing store first, then to the cache.
func (s *Store) MarkSeen(ctx context.Context, canonicalURL string, at time.Time) error {
	if err := s.inner.MarkSeen(ctx, canonicalURL, at); err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, seenSetKey, canonicalURL).Err(); err != nil {
		s.logger.Warn("seen cache write failed", zap.Error(err))
	}
	return nil
}

// Persist delegates to the backing store and caches the URL on success.
func (s *Store) Persist(ctx context.Context, rec store.DecisionRecord) error {
	if err := s.inner.Persist(ctx, rec); err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, seenSetKey, rec.CanonicalURL).Err(); err != nil {
		s.logger.Warn("seen cache write failed", zap.Error(err))
	}
	return nil
}

// BeginRun delegates to the backing store.
func (s *Store) BeginRun(ctx context.Context, run scrape.ScrapeRun) error {
	return s.inner.BeginRun(ctx, run)
}

// FinalizeRun delegates to the backing store.
func (s *Store) FinalizeRun(ctx context.Context, run scrape.ScrapeRun) error {
	return s.inner.FinalizeRun(ctx, run)
}

// ActiveRun delegates to the backing store.
func (s *Store) ActiveRun(ctx context.Context) (bool, error) {
	return s.inner.ActiveRun(ctx)
}
