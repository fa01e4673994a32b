package cacheutil

import (
	"context"
	"strconv"
)

// PutNilFlag records one more miss for key: the counter is incremented and its
// TTL reset to NilTTL.
func (f *Facade) PutNilFlag(ctx context.Context, key string) error {
	if !f.ready() {
		return ErrNotInitialized
	}
	pk := f.keys.Build(TypeNil, key)
	ctx, span := f.start(ctx, "cache.PutNilFlag", pk)
	defer span.End()

	if _, err := f.remote.Incr(ctx, pk); err != nil {
		return f.backendError(span, "incr", pk, err)
	}
	if _, err := f.remote.Expire(ctx, pk, NilTTL); err != nil {
		return f.backendError(span, "expire", pk, err)
	}
	return nil
}

// HasNilFlag reports whether key is known absent, meaning more than
// NilThreshold misses were recorded within NilTTL. A failed lookup reports false
// along with the error.
func (f *Facade) HasNilFlag(ctx context.Context, key string) (bool, error) {
	if !f.ready() {
		return false, ErrNotInitialized
	}
	pk := f.keys.Build(TypeNil, key)
	ctx, span := f.start(ctx, "cache.HasNilFlag", pk)
	defer span.End()

	buf, ok, err := f.remote.Get(ctx, pk)
	if err != nil {
		return false, f.backendError(span, "get", pk, err)
	}
	if !ok {
		return false, nil
	}
	n, err := strconv.ParseInt(string(buf), 10, 64)
	if err != nil {
		return false, f.backendError(span, "parse", pk, err)
	}
	return n > NilThreshold, nil
}

// DelNilFlag clears the miss counter of key. It reports whether a counter existed.
func (f *Facade) DelNilFlag(ctx context.Context, key string) (bool, error) {
	if !f.ready() {
		return false, ErrNotInitialized
	}
	pk := f.keys.Build(TypeNil, key)
	ctx, span := f.start(ctx, "cache.DelNilFlag", pk)
	defer span.End()

	ok, err := f.remote.Delete(ctx, pk)
	if err != nil {
		return false, f.backendError(span, "delete", pk, err)
	}
	return ok, nil
}
