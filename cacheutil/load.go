package cacheutil

import (
	"context"
	"reflect"

	"github.com/opsli/go-cache/sys"
	"go.opentelemetry.io/otel/trace"
)

// Loader fetches key from the authoritative store. found is false when the
// store has no such record.
type Loader[T any] func(ctx context.Context, key string) (value T, found bool, err error)

// Load reads key through the cache and falls back to load on a miss.
//
// Keys with a raised nil flag are answered as absent without calling load.
// Concurrent misses on the same key and T in one process share a single call
// to load. A loaded value is written back (as eden data with Permanent) and
// clears the nil flag; a record the store does not have bumps the nil flag.
// Cache failures are logged and recorded on the cache.Load span but do not
// change the result, which only reflects the cache read and load.
func Load[T any](ctx context.Context, f *Facade, key string, load Loader[T], opts ...CallOption) sys.Result[T] {
	if !f.ready() {
		return sys.Err[T](ErrNotInitialized)
	}
	o := applyCallOptions(opts)
	t := TypeTimed
	if o.permanent {
		t = TypeEden
	}
	pk := f.keys.Build(t, key)
	ctx, span := f.start(ctx, "cache.Load", pk)
	defer span.End()

	absent, err := f.HasNilFlag(ctx, key)
	recordCacheError(span, err)
	if absent {
		return sys.Absent[T]()
	}
	var cached sys.Result[T]
	if o.permanent {
		cached = GetEdenAs[T](ctx, f, key, opts...)
	} else {
		cached = GetTimedAs[T](ctx, f, key, opts...)
	}
	recordCacheError(span, cached.Err)
	if cached.IsFound() {
		return cached
	}

	v, err, _ := f.group.Do(pk+"|"+reflect.TypeFor[T]().String(), func() (any, error) {
		val, found, err := load(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			recordCacheError(span, f.PutNilFlag(ctx, key))
			return sys.Absent[T](), nil
		}
		if err := f.Put(ctx, key, val, opts...); err != nil {
			recordCacheError(span, err)
		} else {
			_, err := f.DelNilFlag(ctx, key)
			recordCacheError(span, err)
		}
		return sys.Ok(val), nil
	})
	if err != nil {
		return sys.Err[T](err)
	}
	// the group key carries T, so every caller sharing a call asked for T
	return v.(sys.Result[T])
}

func recordCacheError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}
