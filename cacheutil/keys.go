package cacheutil

import (
	"strings"

	"github.com/opsli/go-cache/config"
)

// Type is the namespace segment of a physical key. It is fixed per call site
// and never inferred from the stored data.
type Type string

const (
	// TypeTimed holds hot data that expires on its own.
	TypeTimed Type = "timed"
	// TypeEden holds permanent data, removed only by an explicit delete.
	TypeEden Type = "eden"
	// TypeEdenHash holds permanent data addressed by an outer key and a field.
	TypeEdenHash Type = "edenhash"
	// TypeNil holds the negative-cache counters.
	TypeNil Type = "nil"
)

// DefaultPrefix is config.DefaultPrefix with its trailing colon.
const DefaultPrefix = config.DefaultPrefix + ":"

// Keys builds physical cache keys of the form {prefix}{type}:{key}.
type Keys struct {
	prefix string
}

// NewKeys returns a namespacer for prefix. An empty prefix becomes
// DefaultPrefix and a missing trailing colon is added.
func NewKeys(prefix string) Keys {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return Keys{prefix: DefaultPrefix}
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return Keys{prefix: prefix}
}

// Prefix returns the global prefix, including its trailing colon.
func (k Keys) Prefix() string {
	return k.prefix
}

// Build returns the physical key of key under t.
func (k Keys) Build(t Type, key string) string {
	return k.prefix + string(t) + ":" + key
}

// Field returns the local key of one field of the hash at outer.
func (k Keys) Field(outer, field string) string {
	return outer + ":" + field
}
