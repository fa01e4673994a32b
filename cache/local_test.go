package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalSimple(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewLocal(ctx, WithExpiryCheck(time.Second))
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	cancel()
}

func TestLocalSetGet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewLocal(ctx, WithSpace(SpaceConfig{Name: "hotData", TTL: 10 * time.Millisecond}))
	defer c.Close()

	val, found, err := c.Get(ctx, "hotData", "test")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	assert.NoError(t, c.Put(ctx, "hotData", "test", Entry{Data: "value"}))
	val, found, err = c.Get(ctx, "hotData", "test")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, Entry{Data: "value"}, val)

	time.Sleep(time.Millisecond * 15)
	val, found, err = c.Get(ctx, "hotData", "test")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestLocalSpacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(ctx)
	defer c.Close()

	assert.NoError(t, c.Put(ctx, "a", "key", 1))
	assert.NoError(t, c.Put(ctx, "b", "key", 2))

	v, found, _ := c.Get(ctx, "a", "key")
	assert.True(t, found)
	assert.Equal(t, 1, v)
	v, found, _ = c.Get(ctx, "b", "key")
	assert.True(t, found)
	assert.Equal(t, 2, v)

	_, found, _ = c.Get(ctx, "c", "key")
	assert.False(t, found)
}

func TestLocalDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(ctx)
	defer c.Close()

	assert.NoError(t, c.Put(ctx, "s", "key", "value"))
	assert.NoError(t, c.Delete(ctx, "s", "key"))
	_, found, _ := c.Get(ctx, "s", "key")
	assert.False(t, found)

	// Deleting missing keys and unknown spaces still succeeds.
	assert.NoError(t, c.Delete(ctx, "s", "key"))
	assert.NoError(t, c.Delete(ctx, "unknown", "key"))
}

func TestLocalBackgroundExpire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewLocal(ctx, WithExpiryCheck(time.Millisecond*50), WithExpires(40*time.Millisecond))
	defer c.Close()

	assert.NoError(t, c.Put(ctx, "s", "test", "value"))
	assert.Equal(t, int64(1), c.Stats().Entries)
	time.Sleep(time.Millisecond * 200)
	assert.Equal(t, int64(0), c.Stats().Entries)
}

func TestLocalEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(ctx, WithShards(1), WithSpace(SpaceConfig{Name: "s", TTL: time.Minute, Capacity: 2}))
	defer c.Close()

	assert.NoError(t, c.Put(ctx, "s", "a", 1))
	assert.NoError(t, c.Put(ctx, "s", "b", 2))
	// Touch a so b becomes the eviction candidate.
	_, found, _ := c.Get(ctx, "s", "a")
	assert.True(t, found)
	assert.NoError(t, c.Put(ctx, "s", "c", 3))

	_, found, _ = c.Get(ctx, "s", "b")
	assert.False(t, found)
	_, found, _ = c.Get(ctx, "s", "a")
	assert.True(t, found)
	_, found, _ = c.Get(ctx, "s", "c")
	assert.True(t, found)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, int64(2), stats.Entries)
}

func TestLocalOverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(ctx, WithShards(1), WithSpace(SpaceConfig{Name: "s", Capacity: 1}))
	defer c.Close()

	assert.NoError(t, c.Put(ctx, "s", "a", 1))
	assert.NoError(t, c.Put(ctx, "s", "a", 2))
	v, found, _ := c.Get(ctx, "s", "a")
	assert.True(t, found)
	assert.Equal(t, 2, v)
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestLocalConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(ctx, WithCapacity(1000))
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%50)
				c.Put(ctx, "s", key, g)
				c.Get(ctx, "s", key)
				if i%10 == 0 {
					c.Delete(ctx, "s", key)
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Entries, int64(50))
}
