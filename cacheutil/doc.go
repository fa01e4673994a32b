// Package cacheutil provides a two-tier cache facade: a bounded in-process
// cache in front of a shared Redis cache.
//
// Keys are namespaced as {prefix}{type}:{key}, where type is one of timed (hot
// data with a jittered TTL), eden (permanent data), edenhash (permanent hashes)
// or nil (negative-cache counters). Every value is stored wrapped in a
// cache.Entry, so a permanent write of {"name":"Ann"} under user:42 leaves
// {"data":{"name":"Ann"}} at opsli:eden:user:42.
//
// Reads return a sys.Result that is found, absent or failed. Backend failures
// are logged and returned marked with ErrBackend; they never panic and are
// never retried.
//
//	f, err := cacheutil.New(cache.NewRedis(client), cache.NewLocal(ctx))
//	if err != nil {
//		return err
//	}
//	_ = f.Put(ctx, "user:42", user, cacheutil.Permanent())
//	res := cacheutil.GetEdenAs[User](ctx, f, "user:42", cacheutil.WithLocal())
package cacheutil
