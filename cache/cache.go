package cache

import (
	"context"
	"time"
)

// Remote is a client to a shared, network-accessible key/value store. Values are
// opaque bytes; encoding is the caller's concern. A ttl <= 0 on Set stores the
// value without expiry.
type Remote interface {
	// Get returns the value at key. A missing key is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores val at key, expiring after ttl when ttl > 0.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// HGet returns a single field of the hash at key.
	HGet(ctx context.Context, key, field string) ([]byte, bool, error)
	// HGetAll returns every field of the hash at key. A missing key yields an empty map.
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
	// HSet stores val under field of the hash at key.
	HSet(ctx context.Context, key, field string, val []byte) error
	// HDelete removes field from the hash at key and returns how many fields were removed.
	HDelete(ctx context.Context, key, field string) (int64, error)
	// Incr atomically increments the integer at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire (re)sets the TTL of key and reports whether the key exists.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Close releases resources owned by the client.
	Close() error
}

// Local is an in-process, bounded, TTL based cache partitioned into named spaces.
// Values are stored as-is, without serialization.
type Local interface {
	Get(ctx context.Context, space, key string) (any, bool, error)
	// Put stores val using the TTL configured for space.
	Put(ctx context.Context, space, key string, val any) error
	// Delete removes key from space. Removing a missing key succeeds.
	Delete(ctx context.Context, space, key string) error
	// Stats returns counters accumulated since creation.
	Stats() Stats
	Close() error
}

// Stats are the counters kept by a Local cache.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int64
}

// EntryField is the single field name every stored payload lives under.
const EntryField = "data"

// Entry wraps a caller value so every backend stores it under EntryField.
type Entry struct {
	Data any `json:"data" msgpack:"data"`
}

// DefaultExpires is the TTL of a local space that has not been configured.
const DefaultExpires = 5 * time.Minute

// DefaultQueryTimeout is the per-operation timeout for remote backends.
// Prevents indefinite hangs on slow or unresponsive storage.
const DefaultQueryTimeout = 5 * time.Second

// DefaultShards is the number of lock shards per local space.
const DefaultShards = 16

// SpaceConfig describes one local cache space.
type SpaceConfig struct {
	Name     string
	TTL      time.Duration
	Capacity int
}

// config holds the resolved configuration for a cache implementation.
type config struct {
	defaultExpires  time.Duration
	defaultCapacity int
	queryTimeout    time.Duration
	expiryCheck     time.Duration
	prefix          string
	shards          int
	spaces          map[string]SpaceConfig
}

// Option configures a cache implementation.
type Option func(*config)

func defaultConfig() config {
	return config{
		defaultExpires: DefaultExpires,
		queryTimeout:   DefaultQueryTimeout,
		expiryCheck:    time.Minute,
		shards:         DefaultShards,
		spaces:         make(map[string]SpaceConfig),
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithExpires sets the TTL used by local spaces that were not configured with
// WithSpace. Defaults to DefaultExpires (5 minutes).
func WithExpires(d time.Duration) Option {
	return func(c *config) { c.defaultExpires = d }
}

// WithCapacity bounds the number of entries of local spaces that were not
// configured with WithSpace. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(c *config) { c.defaultCapacity = n }
}

// WithQueryTimeout sets the per-operation timeout for the Redis backend.
// Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithExpiryCheck sets the interval for background expired entry cleanup of the
// local backend. Defaults to 1 minute.
func WithExpiryCheck(d time.Duration) Option {
	return func(c *config) { c.expiryCheck = d }
}

// WithPrefix sets a key prefix applied by the Redis backend to every key.
// Defaults to empty (no prefix).
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithShards sets the number of lock shards per local space.
func WithShards(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.shards = n
		}
	}
}

// WithSpace configures the TTL and capacity of a named local space.
func WithSpace(space SpaceConfig) Option {
	return func(c *config) {
		if space.TTL <= 0 {
			space.TTL = c.defaultExpires
		}
		c.spaces[space.Name] = space
	}
}
