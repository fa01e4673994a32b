package cacheutil

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/opsli/go-cache/cache"
	"github.com/opsli/go-cache/config"
	"github.com/opsli/go-cache/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/opsli/go-cache/cacheutil"

var (
	// ErrNotInitialized is returned by every operation of a Facade that was not
	// built with New.
	ErrNotInitialized = errors.New("cacheutil: facade not initialized")
	// ErrBackend marks every error caused by a failing cache backend.
	ErrBackend = errors.New("cacheutil: backend failure")
	// ErrConversion is returned by typed reads when the payload cannot be
	// converted to the requested type.
	ErrConversion = errors.New("cacheutil: conversion failed")
)

const (
	// DefaultHotTTL is the base TTL of timed writes.
	DefaultHotTTL = config.DefaultHotDataTTL
	// NilTTL is the lifetime of a negative-cache counter, refreshed on every increment.
	NilTTL = 300 * time.Second
	// NilThreshold is the count a negative-cache counter must exceed to mark a key as known absent.
	NilThreshold = 3
)

// Facade layers a bounded local cache in front of a shared remote cache. It is
// immutable after New and safe for concurrent use.
type Facade struct {
	remote cache.Remote
	local  cache.Local
	keys   Keys
	hotTTL time.Duration
	space  string
	codec  cache.Codec
	log    logger.Logger
	int64n func(n int64) int64
	group  *singleflight.Group
}

type options struct {
	prefix string
	hotTTL time.Duration
	space  string
	codec  cache.Codec
	log    logger.Logger
	int64n func(n int64) int64
}

// Option configures a Facade.
type Option func(*options)

// WithPrefix sets the global key prefix. Defaults to DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithHotTTL sets the base TTL of timed writes. Values under one second are ignored.
func WithHotTTL(d time.Duration) Option {
	return func(o *options) {
		if d >= time.Second {
			o.hotTTL = d
		}
	}
}

// WithBackend takes the base TTL of timed writes from the hot-data space of the
// backend configuration resource.
func WithBackend(b *config.Backend) Option {
	return WithHotTTL(b.HotDataTTL())
}

// WithSpace sets the local cache space. Defaults to config.HotDataSpace.
func WithSpace(space string) Option {
	return func(o *options) { o.space = space }
}

// WithCodec sets the codec used for remote entries. Defaults to JSON.
func WithCodec(c cache.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger sets the logger backend failures are reported to.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRandom replaces the source of TTL jitter. int64n must return a value in [0, n).
func WithRandom(int64n func(n int64) int64) Option {
	return func(o *options) { o.int64n = int64n }
}

// New returns a Facade over remote and local. Both backends are required.
func New(remote cache.Remote, local cache.Local, opts ...Option) (*Facade, error) {
	if remote == nil || local == nil {
		return nil, errors.Wrap(ErrNotInitialized, "remote and local caches are required")
	}
	o := options{
		hotTTL: DefaultHotTTL,
		space:  config.HotDataSpace,
		codec:  cache.JSONCodec{},
		int64n: rand.Int64N,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewConsoleLogger()
	}
	return &Facade{
		remote: remote,
		local:  local,
		keys:   NewKeys(o.prefix),
		hotTTL: o.hotTTL,
		space:  o.space,
		codec:  o.codec,
		log:    o.log.WithPrefix("[cache]"),
		int64n: o.int64n,
		group:  &singleflight.Group{},
	}, nil
}

func (f *Facade) ready() bool {
	return f != nil && f.remote != nil && f.local != nil
}

// Keys returns the namespacer of the facade.
func (f *Facade) Keys() (Keys, error) {
	if !f.ready() {
		return Keys{}, ErrNotInitialized
	}
	return f.keys, nil
}

// Key returns the physical key of key under t.
func (f *Facade) Key(t Type, key string) (string, error) {
	if !f.ready() {
		return "", ErrNotInitialized
	}
	return f.keys.Build(t, key), nil
}

// Stats returns the counters of the local tier.
func (f *Facade) Stats() (cache.Stats, error) {
	if !f.ready() {
		return cache.Stats{}, ErrNotInitialized
	}
	return f.local.Stats(), nil
}

// Close closes both tiers.
func (f *Facade) Close() error {
	if !f.ready() {
		return ErrNotInitialized
	}
	return errors.Join(f.local.Close(), f.remote.Close())
}

// hotTTLJitter returns a TTL uniformly distributed in [1.2T, 2.0T) whole seconds.
// It is never shorter than one second, since a zero TTL means no expiry.
func (f *Facade) hotTTLJitter() time.Duration {
	base := max(int64(f.hotTTL/time.Second), 1)
	lo := base * 6 / 5
	hi := base * 2
	if hi <= lo {
		return time.Duration(lo) * time.Second
	}
	return time.Duration(lo+f.int64n(hi-lo)) * time.Second
}

// CallOption adjusts a single facade call.
type CallOption func(*callOptions)

type callOptions struct {
	local     bool
	permanent bool
}

// WithLocal makes a read consult the local tier first and populate it from a
// remote hit.
func WithLocal() CallOption {
	return func(o *callOptions) { o.local = true }
}

// Permanent makes a write store eden data without expiry.
func Permanent() CallOption {
	return func(o *callOptions) { o.permanent = true }
}

func applyCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (f *Facade) start(ctx context.Context, name, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attribute.String("cache.key", key)))
}

// backendError marks err as a backend failure, logs it and records it on span.
func (f *Facade) backendError(span trace.Span, op, key string, err error) error {
	err = errors.Mark(errors.Wrapf(err, "cache %s %s", op, key), ErrBackend)
	logger.WithKV(f.log, "key", key).Error("%s failed: %s", op, err)
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	return err
}
