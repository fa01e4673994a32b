package cacheutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/opsli/go-cache/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCachesFoundValue(t *testing.T) {
	env := newTestFacade(t)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(ctx context.Context, key string) (user, bool, error) {
		calls.Add(1)
		return user{Name: "Ann", Age: 31}, true, nil
	}

	for i := 0; i < 3; i++ {
		res := Load(ctx, env.f, "user:1", load, Permanent(), WithLocal())
		require.True(t, res.IsFound())
		assert.Equal(t, "Ann", res.Ok.Name)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, env.mr.Exists("opsli:eden:user:1"))
}

func TestLoadClearsNilFlag(t *testing.T) {
	env := newTestFacade(t)
	ctx := context.Background()

	require.NoError(t, env.f.PutNilFlag(ctx, "k"))
	res := Load(ctx, env.f, "k", func(context.Context, string) (string, bool, error) {
		return "v", true, nil
	})
	require.True(t, res.IsFound())
	assert.False(t, env.mr.Exists("opsli:nil:k"))
	assert.True(t, env.mr.Exists("opsli:timed:k"))
}

func TestLoadStopsAfterRepeatedMisses(t *testing.T) {
	env := newTestFacade(t)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context, string) (string, bool, error) {
		calls.Add(1)
		return "", false, nil
	}

	for i := 0; i < 6; i++ {
		assert.True(t, Load(ctx, env.f, "ghost", load).IsAbsent())
	}
	assert.Equal(t, int32(NilThreshold+1), calls.Load())

	_, err := env.f.DelNilFlag(ctx, "ghost")
	require.NoError(t, err)
	assert.True(t, Load(ctx, env.f, "ghost", load).IsAbsent())
	assert.Equal(t, int32(NilThreshold+2), calls.Load())
}

func TestLoadError(t *testing.T) {
	env := newTestFacade(t)
	ctx := context.Background()

	boom := errors.New("db down")
	res := Load(ctx, env.f, "k", func(context.Context, string) (int, bool, error) {
		return 0, false, boom
	})
	assert.True(t, res.IsErr(boom))
	assert.False(t, env.mr.Exists("opsli:timed:k"))
	assert.False(t, env.mr.Exists("opsli:nil:k"))
}

func TestLoadSharesConcurrentMisses(t *testing.T) {
	env := newTestFacade(t)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context, string) (int, bool, error) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		return 42, true, nil
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res := Load(ctx, env.f, "answer", load)
			assert.True(t, res.IsFound())
			assert.Equal(t, 42, res.Ok)
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoadConcurrentDifferentTypes(t *testing.T) {
	env := newTestFacade(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var text sys.Result[string]
	var number sys.Result[int]
	wg.Add(2)
	go func() {
		defer wg.Done()
		text = Load(ctx, env.f, "k", func(context.Context, string) (string, bool, error) {
			time.Sleep(100 * time.Millisecond)
			return "seven", true, nil
		})
	}()
	go func() {
		defer wg.Done()
		number = Load(ctx, env.f, "k", func(context.Context, string) (int, bool, error) {
			time.Sleep(100 * time.Millisecond)
			return 7, true, nil
		})
	}()
	wg.Wait()

	require.True(t, text.IsFound())
	assert.Equal(t, "seven", text.Ok)
	require.True(t, number.IsFound())
	assert.Equal(t, 7, number.Ok)
}

func TestLoadUninitialized(t *testing.T) {
	var f *Facade
	res := Load(context.Background(), f, "k", func(context.Context, string) (int, bool, error) {
		return 1, true, nil
	})
	assert.True(t, res.IsErr(ErrNotInitialized))
}
