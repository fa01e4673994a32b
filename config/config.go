// Package config loads the settings of the cache facade: the global key prefix,
// the entry codec, the Redis connection and the backend configuration resource
// that declares the local cache spaces.
//
// A config file is YAML:
//
//	prefix: opsli
//	codec: json
//	redis:
//	  url: redis://localhost:6379/0
//	  query_timeout: 5s
//	backend_file: config/cache-backend.yaml
//
// Values left empty fall back to the defaults below; Validate reports values
// that are present but unusable.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/opsli/go-cache/cache"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPrefix is the global key prefix when none is configured.
	DefaultPrefix = "opsli"
	// DefaultRedisAddress is used when neither a URL nor an address is configured.
	DefaultRedisAddress = "localhost:6379"
	// DefaultPoolSize is the Redis connection pool size.
	DefaultPoolSize = 10
)

// Redis holds the connection settings for the remote tier. URL takes precedence
// over the individual fields.
type Redis struct {
	URL          string `yaml:"url"`
	Address      string `yaml:"address"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	QueryTimeout string `yaml:"query_timeout"`
}

// Config is the facade configuration file.
type Config struct {
	Prefix      string  `yaml:"prefix"`
	Codec       string  `yaml:"codec"`
	Redis       Redis   `yaml:"redis"`
	BackendFile string  `yaml:"backend_file"`
	Spaces      []Space `yaml:"spaces"`
}

// Parse decodes a YAML config document.
func Parse(buf []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	return &c, nil
}

// Load reads and parses the config file at filename. A missing file yields an
// empty config so that defaults and environment overrides still apply.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return &Config{}, nil
	}
	buf, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", filename)
	}
	return Parse(buf)
}

// KeyPrefix returns the namespacing prefix with its trailing colon, e.g. "opsli:".
func (c *Config) KeyPrefix() string {
	p := strings.TrimSpace(c.Prefix)
	if p == "" {
		p = DefaultPrefix
	}
	if !strings.HasSuffix(p, ":") {
		p += ":"
	}
	return p
}

// EntryCodec returns the configured codec, JSON by default.
func (c *Config) EntryCodec() (cache.Codec, error) {
	return cache.CodecByName(c.Codec)
}

// Backend returns the backend configuration resource: the file named by
// BackendFile when set, otherwise the inline Spaces.
func (c *Config) Backend() (*Backend, error) {
	if c.BackendFile == "" {
		return &Backend{Spaces: c.Spaces}, nil
	}
	return LoadBackend(c.BackendFile)
}

// Validate reports settings that are present but unusable.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.EntryCodec(); err != nil {
		errs = append(errs, err)
	}
	if c.Redis.QueryTimeout != "" {
		if _, err := ParseTTL(c.Redis.QueryTimeout); err != nil {
			errs = append(errs, errors.Wrap(err, "redis.query_timeout"))
		}
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.Newf("redis.db must not be negative, got %d", c.Redis.DB))
	}
	for _, s := range c.Spaces {
		if s.Capacity < 0 {
			errs = append(errs, errors.Newf("space %q: capacity must not be negative", s.Alias))
		}
	}
	return errors.Join(errs...)
}

// Options converts the connection settings into go-redis options.
func (r Redis) Options() (*redis.Options, error) {
	if r.URL != "" {
		opts, err := redis.ParseURL(r.URL)
		if err != nil {
			return nil, errors.Wrap(err, "config: redis url")
		}
		if r.PoolSize > 0 {
			opts.PoolSize = r.PoolSize
		}
		return opts, nil
	}
	opts := &redis.Options{
		Addr:     r.Address,
		Password: r.Password,
		DB:       r.DB,
		PoolSize: r.PoolSize,
	}
	if opts.Addr == "" {
		opts.Addr = DefaultRedisAddress
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = DefaultPoolSize
	}
	return opts, nil
}

// Timeout returns the per-query timeout, cache.DefaultQueryTimeout when unset or invalid.
func (r Redis) Timeout() time.Duration {
	if d, err := ParseTTL(r.QueryTimeout); err == nil && d > 0 {
		return d
	}
	return cache.DefaultQueryTimeout
}
