// Package cache provides the two backend tiers used by the cache facade in
// [github.com/opsli/go-cache/cacheutil]: a shared [Remote] store and an
// in-process [Local] store.
//
// # Remote
//
// [NewRedis] returns a [Remote] backed by Redis using
// [github.com/redis/go-redis/v9]. Values are opaque bytes; hashes, atomic
// increments and TTL changes map directly onto the matching Redis commands.
// Each operation uses a per-query timeout ([DefaultQueryTimeout]) derived from
// the caller's context. The caller owns the client lifecycle; [Remote.Close] is
// a no-op. An optional key prefix ([WithPrefix]) supports sharing one Redis
// database between several deployments.
//
// # Local
//
// [NewLocal] returns a [Local] cache partitioned into named spaces. Each space
// has its own TTL and capacity ([WithSpace]); spaces that were never configured
// are created on first use from [WithExpires] and [WithCapacity]. A space is
// split into lock shards selected by xxhash, and each shard evicts its least
// recently used entry once full. Values are stored as-is (no copying), so
// mutations to stored pointers are visible through the cache. Expired entries
// are cleaned up by a background goroutine at a configurable interval
// ([WithExpiryCheck]).
//
// # Entries and codecs
//
// Every payload is wrapped in an [Entry] before it is stored, so the value
// always lives under the field named [EntryField]. [EncodeEntry] and
// [DecodeEntry] apply a [Codec]: [JSONCodec] (the default, human readable in
// redis-cli) or [MsgpackCodec] (compact; struct fields must be exported).
//
//	buf, _ := cache.EncodeEntry(cache.JSONCodec{}, map[string]any{"name": "Ann"})
//	// buf == {"data":{"name":"Ann"}}
package cache
