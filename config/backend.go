package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/opsli/go-cache/cache"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// HotDataSpace is the alias of the local space holding hot data. Its TTL also
// seeds the facade's hot-data base TTL.
const HotDataSpace = "hotData"

// DefaultHotDataTTL is used whenever the backend resource does not yield a usable hot-data TTL.
const DefaultHotDataTTL = 21600 * time.Second

// Space declares one local cache space. TTL accepts bare seconds ("21600") or a
// duration ("6h", "1d12h").
type Space struct {
	Alias    string `yaml:"alias"`
	TTL      string `yaml:"ttl"`
	Capacity int    `yaml:"capacity"`
}

// Backend is the backend configuration resource, read once at process start.
//
//	spaces:
//	  - alias: hotData
//	    ttl: 6h
//	    capacity: 10000
type Backend struct {
	Spaces []Space `yaml:"spaces"`
}

// ParseBackend decodes a backend configuration resource.
func ParseBackend(buf []byte) (*Backend, error) {
	var b Backend
	if err := yaml.Unmarshal(buf, &b); err != nil {
		return nil, errors.Wrap(err, "config: parse backend")
	}
	return &b, nil
}

// LoadBackend reads the backend configuration resource at filename.
func LoadBackend(filename string) (*Backend, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read backend %s", filename)
	}
	return ParseBackend(buf)
}

// ParseTTL parses bare seconds or a duration string.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty ttl")
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid ttl %q", s)
	}
	return d, nil
}

// Space returns the space declared under alias.
func (b *Backend) Space(alias string) (Space, bool) {
	if b == nil {
		return Space{}, false
	}
	for _, s := range b.Spaces {
		if s.Alias == alias {
			return s, true
		}
	}
	return Space{}, false
}

// HotDataTTL returns the TTL of the hot-data space, falling back to
// DefaultHotDataTTL when the space is missing or its TTL is unparsable or
// shorter than one second.
func (b *Backend) HotDataTTL() time.Duration {
	s, ok := b.Space(HotDataSpace)
	if !ok {
		return DefaultHotDataTTL
	}
	d, err := ParseTTL(s.TTL)
	if err != nil || d < time.Second {
		return DefaultHotDataTTL
	}
	return d
}

// SpaceConfigs converts the declared spaces into local cache options. Spaces
// with an unusable TTL are skipped and reported in the returned error; the
// hot-data space always falls back to DefaultHotDataTTL.
func (b *Backend) SpaceConfigs() ([]cache.SpaceConfig, error) {
	if b == nil {
		return nil, nil
	}
	var errs []error
	out := make([]cache.SpaceConfig, 0, len(b.Spaces))
	for _, s := range b.Spaces {
		if s.Alias == HotDataSpace {
			out = append(out, cache.SpaceConfig{Name: s.Alias, TTL: b.HotDataTTL(), Capacity: s.Capacity})
			continue
		}
		d, err := ParseTTL(s.TTL)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "space %q", s.Alias))
			continue
		}
		out = append(out, cache.SpaceConfig{Name: s.Alias, TTL: d, Capacity: s.Capacity})
	}
	return out, errors.Join(errs...)
}

// LocalOptions returns the local cache options for every usable space.
func (b *Backend) LocalOptions() []cache.Option {
	spaces, _ := b.SpaceConfigs()
	opts := make([]cache.Option, 0, len(spaces))
	for _, s := range spaces {
		opts = append(opts, cache.WithSpace(s))
	}
	return opts
}
