package cacheutil

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/opsli/go-cache/cache"
	"github.com/opsli/go-cache/sys"
	"go.opentelemetry.io/otel/trace"
)

// GetTimed reads hot data stored by Put.
func (f *Facade) GetTimed(ctx context.Context, key string, opts ...CallOption) sys.Result[any] {
	return f.get(ctx, TypeTimed, key, applyCallOptions(opts))
}

// GetEden reads permanent data stored by Put with Permanent.
func (f *Facade) GetEden(ctx context.Context, key string, opts ...CallOption) sys.Result[any] {
	return f.get(ctx, TypeEden, key, applyCallOptions(opts))
}

func (f *Facade) get(ctx context.Context, t Type, key string, o callOptions) sys.Result[any] {
	if !f.ready() {
		return sys.Err[any](ErrNotInitialized)
	}
	pk := f.keys.Build(t, key)
	ctx, span := f.start(ctx, "cache.Get", pk)
	defer span.End()

	if o.local {
		if v, ok := f.localGet(ctx, span, pk); ok {
			return sys.Ok(v)
		}
	}
	buf, ok, err := f.remote.Get(ctx, pk)
	if err != nil {
		return sys.Err[any](f.backendError(span, "get", pk, err))
	}
	if !ok {
		return sys.Absent[any]()
	}
	v, err := cache.DecodeEntry(f.codec, buf)
	if err != nil {
		return sys.Err[any](f.backendError(span, "decode", pk, err))
	}
	if o.local {
		f.localPut(ctx, span, pk, v)
	}
	return sys.Ok(v)
}

// GetHash reads one field of a hash stored by PutHash.
func (f *Facade) GetHash(ctx context.Context, key, field string, opts ...CallOption) sys.Result[any] {
	if !f.ready() {
		return sys.Err[any](ErrNotInitialized)
	}
	o := applyCallOptions(opts)
	pk := f.keys.Build(TypeEdenHash, key)
	lk := f.keys.Field(pk, field)
	ctx, span := f.start(ctx, "cache.GetHash", lk)
	defer span.End()

	if o.local {
		if v, ok := f.localGet(ctx, span, lk); ok {
			return sys.Ok(v)
		}
	}
	buf, ok, err := f.remote.HGet(ctx, pk, field)
	if err != nil {
		return sys.Err[any](f.backendError(span, "hget", lk, err))
	}
	if !ok {
		return sys.Absent[any]()
	}
	v, err := cache.DecodeEntry(f.codec, buf)
	if err != nil {
		return sys.Err[any](f.backendError(span, "decode", lk, err))
	}
	if o.local {
		f.localPut(ctx, span, lk, v)
	}
	return sys.Ok(v)
}

// GetHashAll reads every field of a hash from the remote tier. Fields without a
// decodable payload are skipped; a missing hash yields an empty map.
func (f *Facade) GetHashAll(ctx context.Context, key string) sys.Result[map[string]any] {
	if !f.ready() {
		return sys.Err[map[string]any](ErrNotInitialized)
	}
	pk := f.keys.Build(TypeEdenHash, key)
	ctx, span := f.start(ctx, "cache.GetHashAll", pk)
	defer span.End()

	fields, err := f.remote.HGetAll(ctx, pk)
	if err != nil {
		return sys.Err[map[string]any](f.backendError(span, "hgetall", pk, err))
	}
	out := make(map[string]any, len(fields))
	for field, buf := range fields {
		v, err := cache.DecodeEntry(f.codec, buf)
		if err != nil {
			f.log.Warn("skipping field %s of %s: %s", field, pk, err)
			continue
		}
		if v == nil {
			continue
		}
		out[field] = v
	}
	return sys.Ok(out)
}

// localGet returns the payload held by the local tier. Local failures are
// logged and read as a miss.
func (f *Facade) localGet(ctx context.Context, span trace.Span, key string) (any, bool) {
	v, ok, err := f.local.Get(ctx, f.space, key)
	if err != nil {
		f.backendError(span, "local get", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if e, isEntry := v.(cache.Entry); isEntry {
		return e.Data, true
	}
	return v, true
}

func (f *Facade) localPut(ctx context.Context, span trace.Span, key string, v any) {
	if err := f.local.Put(ctx, f.space, key, cache.Entry{Data: v}); err != nil {
		f.backendError(span, "local put", key, err)
	}
}

// GetTimedAs reads hot data and converts it to T.
func GetTimedAs[T any](ctx context.Context, f *Facade, key string, opts ...CallOption) sys.Result[T] {
	return convertResult[T](f, f.GetTimed(ctx, key, opts...))
}

// GetEdenAs reads permanent data and converts it to T.
func GetEdenAs[T any](ctx context.Context, f *Facade, key string, opts ...CallOption) sys.Result[T] {
	return convertResult[T](f, f.GetEden(ctx, key, opts...))
}

// GetHashAs reads one hash field and converts it to T.
func GetHashAs[T any](ctx context.Context, f *Facade, key, field string, opts ...CallOption) sys.Result[T] {
	return convertResult[T](f, f.GetHash(ctx, key, field, opts...))
}

func convertResult[T any](f *Facade, r sys.Result[any]) sys.Result[T] {
	if r.Err != nil {
		return sys.Err[T](r.Err)
	}
	if !r.Found {
		return sys.Absent[T]()
	}
	v, err := convert[T](f.codec, r.Ok)
	if err != nil {
		return sys.Err[T](err)
	}
	return sys.Ok(v)
}

// convert returns v as T, going through codec when v is a generic decoded
// document such as a map.
func convert[T any](codec cache.Codec, v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var out T
	buf, err := codec.Marshal(v)
	if err != nil {
		return out, errors.Mark(err, ErrConversion)
	}
	if err := codec.Unmarshal(buf, &out); err != nil {
		return out, errors.Mark(errors.Wrapf(err, "convert %T to %T", v, out), ErrConversion)
	}
	return out, nil
}
