package cacheutil

import (
	"context"
	"time"

	"github.com/opsli/go-cache/cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Put stores value in the remote tier. Hot data expires after a jittered TTL
// in [1.2T, 2.0T) of the hot-data base TTL; with Permanent the value is stored
// as eden data without expiry. The local tier is filled lazily by reads.
func (f *Facade) Put(ctx context.Context, key string, value any, opts ...CallOption) error {
	if !f.ready() {
		return ErrNotInitialized
	}
	o := applyCallOptions(opts)
	t, ttl := TypeTimed, f.hotTTLJitter()
	if o.permanent {
		t, ttl = TypeEden, 0
	}
	pk := f.keys.Build(t, key)
	ctx, span := f.start(ctx, "cache.Put", pk)
	defer span.End()
	span.SetAttributes(attribute.Int64("cache.ttl_seconds", int64(ttl/time.Second)))

	buf, err := cache.EncodeEntry(f.codec, value)
	if err != nil {
		return f.backendError(span, "encode", pk, err)
	}
	if err := f.remote.Set(ctx, pk, buf, ttl); err != nil {
		return f.backendError(span, "put", pk, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// PutHash stores value under field of the permanent hash at key. Only the
// remote tier is written.
func (f *Facade) PutHash(ctx context.Context, key, field string, value any) error {
	if !f.ready() {
		return ErrNotInitialized
	}
	pk := f.keys.Build(TypeEdenHash, key)
	ctx, span := f.start(ctx, "cache.PutHash", f.keys.Field(pk, field))
	defer span.End()

	buf, err := cache.EncodeEntry(f.codec, value)
	if err != nil {
		return f.backendError(span, "encode", pk, err)
	}
	if err := f.remote.HSet(ctx, pk, field, buf); err != nil {
		return f.backendError(span, "hput", pk, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
