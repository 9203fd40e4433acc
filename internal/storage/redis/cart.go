// Package redis stores cart records in Redis.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	// DefaultPrefix namespaces cart keys.
	DefaultPrefix = "storefront:cart:"
	// DefaultTTL expires carts that were not written for a month.
	DefaultTTL = 30 * 24 * time.Hour
)

var _ cart.Store = (*CartStore)(nil)

// CartStore keeps one string key per cart session. Every save refreshes the
// key's TTL.
type CartStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a CartStore.
type Option func(*CartStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *CartStore) { s.prefix = prefix }
}

// WithTTL sets the key TTL. Zero keeps carts forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *CartStore) { s.ttl = ttl }
}

// NewCartStore creates a CartStore using client.
func NewCartStore(client *redis.Client, opts ...Option) *CartStore {
	s := &CartStore{
		client: client,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func (s *CartStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Load returns the stored record, or nil when the session has none.
func (s *CartStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", sessionID)
	}
	return data, nil
}

// Save writes the record and refreshes its TTL.
func (s *CartStore) Save(ctx context.Context, sessionID string, data []byte) error {
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %s", sessionID)
	}
	return nil
}

// Delete removes the record.
func (s *CartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return errors.Wrapf(err, "del %s", sessionID)
	}
	return nil
}

// Ping checks the connection, for readiness probes.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
