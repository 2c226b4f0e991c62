// Package querycache deduplicates and caches "list notes" requests keyed by
// page and search term, serving stale data while it revalidates.
package querycache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/notehub/internal/models"
)

// Key identifies one fetchable view.
type Key struct {
	Page   int
	Search string
}

func (k Key) String() string {
	return fmt.Sprintf("notes:%d:%q", k.Page, k.Search)
}

// Status is the observable state of a key.
type Status int

const (
	// StatusLoading means no data has been fetched for the key yet.
	StatusLoading Status = iota
	// StatusReady means data is present, possibly stale.
	StatusReady
	// StatusError means the last fetch failed and there is nothing to show.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "loading"
	}
}

// Snapshot is a point-in-time view of one key.
// A Ready snapshot with a non-nil Err is serving its last good value after a
// failed revalidation.
type Snapshot struct {
	Status   Status
	Data     *models.PageResult
	Err      error
	Fetching bool
}

// Fetcher performs the network call for a key.
type Fetcher func(ctx context.Context, key Key) (*models.PageResult, error)

// Listener is notified after a fetch result has been applied.
type Listener func(Key, Snapshot)

type entry struct {
	data      *models.PageResult
	err       error
	fetchedAt time.Time
	stale     bool
	inflight  bool
	refetch   bool
	issued    uint64
	applied   uint64
}

func (e *entry) snapshot() Snapshot {
	s := Snapshot{Data: e.data, Err: e.err, Fetching: e.inflight}
	switch {
	case e.data != nil:
		s.Status = StatusReady
	case e.err != nil:
		s.Status = StatusError
	default:
		s.Status = StatusLoading
	}
	return s
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleTime keeps entries fresh for d after a successful fetch. Fresh
// entries are served without revalidation.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) {
		c.staleTime = d
	}
}

// WithLogger sets the cache logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// Cache is a process-wide keyed cache of page results.
type Cache struct {
	fetch     Fetcher
	staleTime time.Duration
	logger    *slog.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu        sync.Mutex
	entries   map[Key]*entry
	listeners map[int]Listener
	nextID    int
}

// New creates a Cache backed by fetch.
func New(fetch Fetcher, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		fetch:     fetch,
		logger:    slog.Default(),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[Key]*entry),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cancels background requests. Results arriving afterwards are dropped.
func (c *Cache) Close() {
	c.cancel()
}

// Get returns the cached state of key immediately and starts a background
// revalidation unless one is already running or the entry is still fresh.
func (c *Cache) Get(key Key) Snapshot {
	c.mu.Lock()
	e := c.entryLocked(key)
	start := !e.inflight && !c.freshLocked(e)
	issued := e.issued
	if start {
		e.inflight = true
	}
	snap := e.snapshot()
	c.mu.Unlock()

	if start {
		go c.revalidate(key, issued)
	}
	return snap
}

// revalidate runs a fetch for key. If the call attached to a request that was
// already completing (nothing new was issued), it goes round again.
func (c *Cache) revalidate(key Key, issued uint64) {
	for c.ctx.Err() == nil {
		_, _ = c.run(key)

		c.mu.Lock()
		attached := c.entryLocked(key).issued == issued
		c.mu.Unlock()
		if !attached {
			return
		}
	}
}

// Peek returns the cached state of key without fetching.
func (c *Cache) Peek(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.snapshot()
	}
	return Snapshot{Status: StatusLoading}
}

// Fetch blocks until a result for key is available, attaching to an in-flight
// request when there is one. ctx bounds only this caller's wait.
func (c *Cache) Fetch(ctx context.Context, key Key) (*models.PageResult, error) {
	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.execute(key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.PageResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate marks every entry stale. Keys with a request in flight are
// fetched again once it completes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.stale = true
		if e.inflight {
			e.refetch = true
		}
	}
}

// Subscribe registers fn and returns a function that removes it.
func (c *Cache) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Cache) run(key Key) (*models.PageResult, error) {
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		return c.execute(key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.PageResult), nil
}

// execute is the singleflight leader body: one network call per key at a time.
// An invalidation that lands mid-flight is served by another round inside the
// same call, so waiters observe the post-invalidation result.
func (c *Cache) execute(key Key) (*models.PageResult, error) {
	for {
		c.mu.Lock()
		e := c.entryLocked(key)
		e.issued++
		seq := e.issued
		e.inflight = true
		e.refetch = false
		c.mu.Unlock()

		res, err := c.fetch(c.ctx, key)
		if c.ctx.Err() != nil {
			return res, err
		}
		if again := c.apply(key, seq, res, err); !again {
			return res, err
		}
	}
}

// apply stores a completed result and notifies listeners. Results older than
// the last applied one for the key are discarded. It reports whether an
// invalidation arrived mid-flight and the key must be fetched again.
func (c *Cache) apply(key Key, seq uint64, res *models.PageResult, err error) bool {
	c.mu.Lock()
	e := c.entryLocked(key)
	again := e.refetch
	e.refetch = false
	e.inflight = again
	if seq <= e.applied {
		c.mu.Unlock()
		c.logger.Debug("querycache: dropped out-of-order result", slog.String("key", key.String()))
		return again
	}
	e.applied = seq
	if err != nil {
		e.err = err
		c.logger.Warn("querycache: fetch failed",
			slog.String("key", key.String()),
			slog.Bool("has_data", e.data != nil),
			slog.String("error", err.Error()))
	} else {
		e.data = res
		e.err = nil
		e.fetchedAt = c.now()
		e.stale = again
	}
	snap := e.snapshot()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(key, snap)
	}
	return again
}

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) freshLocked(e *entry) bool {
	if e.data == nil || e.stale || c.staleTime <= 0 {
		return false
	}
	return c.now().Sub(e.fetchedAt) < c.staleTime
}
