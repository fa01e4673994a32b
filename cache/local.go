package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

type item struct {
	key     string
	object  any
	expires time.Time
}

// shard is an LRU bounded map guarded by its own mutex. The front of order is
// the most recently used entry.
type shard struct {
	mutex    sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	capacity int
}

type space struct {
	ttl    time.Duration
	shards []*shard
}

type localCache struct {
	ctx       context.Context
	cancel    context.CancelFunc
	mutex     sync.RWMutex
	spaces    map[string]*space
	waitGroup sync.WaitGroup
	once      sync.Once
	cfg       config
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

var _ Local = (*localCache)(nil)

// NewLocal returns a new in-process Local cache. Spaces configured with
// WithSpace get their own TTL and capacity; any other space is created on first
// use with WithExpires and WithCapacity. Capacity is split evenly across shards.
func NewLocal(parent context.Context, opts ...Option) Local {
	cfg := applyOptions(opts)
	ctx, cancel := context.WithCancel(parent)
	c := &localCache{
		ctx:    ctx,
		cancel: cancel,
		spaces: make(map[string]*space),
		cfg:    cfg,
	}
	for name, sc := range cfg.spaces {
		c.spaces[name] = newSpace(sc.TTL, sc.Capacity, cfg.shards)
	}
	c.waitGroup.Add(1)
	go c.run()
	return c
}

func newSpace(ttl time.Duration, capacity int, shards int) *space {
	per := 0
	if capacity > 0 {
		per = (capacity + shards - 1) / shards
	}
	s := &space{ttl: ttl, shards: make([]*shard, shards)}
	for i := range s.shards {
		s.shards[i] = &shard{
			items:    make(map[string]*list.Element),
			order:    list.New(),
			capacity: per,
		}
	}
	return s
}

func (c *localCache) space(name string, create bool) *space {
	c.mutex.RLock()
	s, ok := c.spaces[name]
	c.mutex.RUnlock()
	if ok || !create {
		return s
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if s, ok = c.spaces[name]; ok {
		return s
	}
	s = newSpace(c.cfg.defaultExpires, c.cfg.defaultCapacity, c.cfg.shards)
	c.spaces[name] = s
	return s
}

func (s *space) shardFor(key string) *shard {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

func (c *localCache) Get(_ context.Context, spaceName, key string) (any, bool, error) {
	s := c.space(spaceName, false)
	if s == nil {
		c.misses.Add(1)
		return nil, false, nil
	}
	sh := s.shardFor(key)
	sh.mutex.Lock()
	defer sh.mutex.Unlock()
	el, ok := sh.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}
	it := el.Value.(*item)
	if it.expires.Before(time.Now()) {
		sh.order.Remove(el)
		delete(sh.items, key)
		c.misses.Add(1)
		return nil, false, nil
	}
	sh.order.MoveToFront(el)
	c.hits.Add(1)
	return it.object, true, nil
}

func (c *localCache) Put(_ context.Context, spaceName, key string, val any) error {
	s := c.space(spaceName, true)
	sh := s.shardFor(key)
	expires := time.Now().Add(s.ttl)
	sh.mutex.Lock()
	defer sh.mutex.Unlock()
	if el, ok := sh.items[key]; ok {
		it := el.Value.(*item)
		it.object = val
		it.expires = expires
		sh.order.MoveToFront(el)
		return nil
	}
	if sh.capacity > 0 && sh.order.Len() >= sh.capacity {
		if oldest := sh.order.Back(); oldest != nil {
			sh.order.Remove(oldest)
			delete(sh.items, oldest.Value.(*item).key)
			c.evictions.Add(1)
		}
	}
	sh.items[key] = sh.order.PushFront(&item{key: key, object: val, expires: expires})
	return nil
}

func (c *localCache) Delete(_ context.Context, spaceName, key string) error {
	s := c.space(spaceName, false)
	if s == nil {
		return nil
	}
	sh := s.shardFor(key)
	sh.mutex.Lock()
	if el, ok := sh.items[key]; ok {
		sh.order.Remove(el)
		delete(sh.items, key)
	}
	sh.mutex.Unlock()
	return nil
}

func (c *localCache) Stats() Stats {
	var entries int64
	c.mutex.RLock()
	for _, s := range c.spaces {
		for _, sh := range s.shards {
			sh.mutex.Lock()
			entries += int64(len(sh.items))
			sh.mutex.Unlock()
		}
	}
	c.mutex.RUnlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   entries,
	}
}

func (c *localCache) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
	})
	return nil
}

func (c *localCache) expire(now time.Time) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	for _, s := range c.spaces {
		for _, sh := range s.shards {
			sh.mutex.Lock()
			for key, el := range sh.items {
				if el.Value.(*item).expires.Before(now) {
					sh.order.Remove(el)
					delete(sh.items, key)
				}
			}
			sh.mutex.Unlock()
		}
	}
}

func (c *localCache) run() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.expire(time.Now())
		}
	}
}
