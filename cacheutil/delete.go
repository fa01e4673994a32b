package cacheutil

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Del removes the timed and the eden variant of key from both tiers.
//
// Every variant present in the remote tier adds two to a counter, one for each
// tier expected to delete it, and every confirmed deletion subtracts one. The
// result is true when the counter ends at zero, so a key that held nothing
// is deleted successfully. The counter cannot tell a backend that failed from
// one that had nothing to delete; the returned error carries every backend
// failure so callers can.
func (f *Facade) Del(ctx context.Context, key string) (bool, error) {
	if !f.ready() {
		return false, ErrNotInitialized
	}
	ctx, span := f.start(ctx, "cache.Del", key)
	defer span.End()

	var (
		count int
		errs  []error
	)
	for _, t := range []Type{TypeTimed, TypeEden} {
		pk := f.keys.Build(t, key)
		_, ok, err := f.remote.Get(ctx, pk)
		if err != nil {
			errs = append(errs, f.backendError(span, "get", pk, err))
			continue
		}
		if !ok {
			continue
		}
		count += 2
		c, err := f.deleteBoth(ctx, span, pk, func() (bool, error) { return f.remote.Delete(ctx, pk) })
		count -= c
		if err != nil {
			errs = append(errs, err)
		}
	}
	span.SetAttributes(attribute.Int("cache.unconfirmed", count))
	return count == 0, errors.Join(errs...)
}

// DelHash removes one field of the hash at key from both tiers. It succeeds
// when both tiers confirm the deletion.
func (f *Facade) DelHash(ctx context.Context, key, field string) (bool, error) {
	if !f.ready() {
		return false, ErrNotInitialized
	}
	pk := f.keys.Build(TypeEdenHash, key)
	lk := f.keys.Field(pk, field)
	ctx, span := f.start(ctx, "cache.DelHash", lk)
	defer span.End()

	confirmed, err := f.deleteBoth(ctx, span, lk, func() (bool, error) {
		n, err := f.remote.HDelete(ctx, pk, field)
		return n > 0, err
	})
	span.SetAttributes(attribute.Int("cache.unconfirmed", 2-confirmed))
	return confirmed == 2, err
}

// deleteBoth deletes localKey from the local tier and runs remoteDelete,
// returning how many tiers confirmed.
func (f *Facade) deleteBoth(ctx context.Context, span trace.Span, localKey string, remoteDelete func() (bool, error)) (int, error) {
	var (
		confirmed int
		errs      []error
	)
	if err := f.local.Delete(ctx, f.space, localKey); err != nil {
		errs = append(errs, f.backendError(span, "local delete", localKey, err))
	} else {
		confirmed++
	}
	ok, err := remoteDelete()
	switch {
	case err != nil:
		errs = append(errs, f.backendError(span, "delete", localKey, err))
	case ok:
		confirmed++
	}
	return confirmed, errors.Join(errs...)
}
