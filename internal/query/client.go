package query

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/amaumene/movieshelf/internal/cache"
	"github.com/amaumene/movieshelf/internal/constants"
	apperrors "github.com/amaumene/movieshelf/internal/errors"
	"github.com/amaumene/movieshelf/pkg/logger"
)

// Status is the lifecycle state of a query.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type fetchMode int

const (
	// join the in-flight fetch of the latest generation, or start one when
	// the entry is stale
	fetchJoin fetchMode = iota
	// always start a new generation
	fetchForce
	// like fetchJoin, flagged as a next-page fetch
	fetchNext
)

// entry is the cached state of one key. Fields are guarded by mu.
type entry struct {
	key  Key
	hash string

	mu          sync.Mutex
	data        any
	hasData     bool
	err         error
	status      Status
	updatedAt   time.Time
	invalidated bool
	removed     bool
	// latest generation started before the last Invalidate; its result
	// cannot make the entry fresh again
	invalidGen uint64

	// generation increases with every started fetch; only the latest may
	// write its result
	generation uint64
	running    bool
	nextPage   bool
	fetching   int

	staleTime time.Duration
	gcTime    time.Duration
	observers int
	listeners map[int]func()
	nextID    int
}

type entryState struct {
	data       any
	hasData    bool
	err        error
	status     Status
	updatedAt  time.Time
	isFetching bool
	nextPage   bool
}

func (e *entry) state() entryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return entryState{
		data:       e.data,
		hasData:    e.hasData,
		err:        e.err,
		status:     e.status,
		updatedAt:  e.updatedAt,
		isFetching: e.fetching > 0,
		nextPage:   e.running && e.nextPage,
	}
}

// stale must be called with mu held.
func (e *entry) stale(now time.Time, staleTime time.Duration) bool {
	if !e.hasData || e.invalidated {
		return true
	}
	return now.Sub(e.updatedAt) >= staleTime
}

func (e *entry) isRemoved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removed
}

func (e *entry) subscribe(fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[int]func())
	}
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// listenersLocked returns the listeners in registration order. mu must be held.
func (e *entry) listenersLocked() []func() {
	ids := make([]int, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fns := make([]func(), len(ids))
	for i, id := range ids {
		fns[i] = e.listeners[id]
	}
	return fns
}

func notify(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// EntrySnapshot is a read-only view of a cache entry.
type EntrySnapshot struct {
	Key        string    `json:"key"`
	Status     Status    `json:"status"`
	HasData    bool      `json:"has_data"`
	IsFetching bool      `json:"is_fetching"`
	IsStale    bool      `json:"is_stale"`
	Observers  int       `json:"observers"`
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Client owns the query cache. Structural cache changes happen under mu;
// when both locks are needed mu is taken before an entry's lock.
type Client struct {
	mu      sync.Mutex
	entries *cache.LRUCache
	group   singleflight.Group
	logger  logger.Logger
	now     func() time.Time
}

// NewClient creates a client holding at most capacity entries.
// Entries with observers or an in-flight fetch never count as evictable.
func NewClient(capacity int, log logger.Logger) *Client {
	if capacity <= 0 {
		capacity = constants.DefaultCacheSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		entries: cache.New(capacity),
		logger:  log,
		now:     time.Now,
	}
}

func (c *Client) lookup(hash string) *entry {
	v, ok := c.entries.Get(hash)
	if !ok {
		return nil
	}
	return v.(*entry)
}

// ensureLocked returns the entry for key, creating it when missing. mu must be held.
func (c *Client) ensureLocked(key Key, opts Options) *entry {
	hash := key.Hash()
	e := c.lookup(hash)
	if e == nil {
		e = &entry{
			key:       key,
			hash:      hash,
			status:    StatusIdle,
			staleTime: opts.StaleTime,
			gcTime:    opts.GCTime,
		}
		c.entries.Set(hash, e, opts.GCTime)
		return e
	}

	e.mu.Lock()
	if opts.GCTime > e.gcTime {
		e.gcTime = opts.GCTime
	}
	e.staleTime = opts.StaleTime
	e.mu.Unlock()
	return e
}

func (c *Client) ensure(key Key, opts Options) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(key, opts)
}

// observe returns the entry for key pinned by one more observer.
func (c *Client) observe(key Key, opts Options) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.ensureLocked(key, opts)
	c.entries.Retain(e.hash)
	e.mu.Lock()
	e.observers++
	e.mu.Unlock()
	return e
}

// unobserve drops one observer; the last one starts the GC window.
func (c *Client) unobserve(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.mu.Lock()
	if e.observers > 0 {
		e.observers--
	}
	removed := e.removed
	gcTime := e.gcTime
	e.mu.Unlock()

	if !removed {
		c.entries.Release(e.hash, gcTime)
	}
}

func flightKey(hash string, gen uint64) string {
	return fmt.Sprintf("%s#%d", hash, gen)
}

// fetch runs fn for e with retries and coalescing, and waits for the outcome
// or ctx. Callers joining an in-flight fetch share its result.
func (c *Client) fetch(ctx context.Context, e *entry, opts Options, mode fetchMode, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	e.mu.Lock()

	if mode == fetchJoin && !e.running && !e.stale(c.now(), opts.StaleTime) {
		data := e.data
		e.mu.Unlock()
		c.mu.Unlock()
		return data, nil
	}

	var gen uint64
	var started []func()
	preInvalidation := e.invalidated && e.generation <= e.invalidGen
	if mode != fetchForce && e.running && !preInvalidation {
		gen = e.generation
	} else {
		e.generation++
		gen = e.generation
		e.running = true
		e.nextPage = mode == fetchNext
		e.fetching++
		if !e.hasData {
			e.status = StatusPending
		}
		if !e.removed {
			c.entries.Retain(e.hash)
		}
		started = e.listenersLocked()
	}

	ch := c.group.DoChan(flightKey(e.hash, gen), func() (any, error) {
		return c.run(ctx, e, gen, opts, fn)
	})

	e.mu.Unlock()
	c.mu.Unlock()

	notify(started)

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) run(ctx context.Context, e *entry, gen uint64, opts Options, fn func(context.Context) (any, error)) (any, error) {
	data, err := withRetry(ctx, opts.Retry, opts.RetryDelay, fn)

	c.mu.Lock()
	e.mu.Lock()

	e.fetching--
	latest := gen == e.generation
	if latest {
		e.running = false
		e.nextPage = false
	}

	switch {
	case !latest || e.removed:
		c.logger.Debugf("[Query] discarding superseded result for %s (generation %d)", e.hash, gen)
	case err == nil:
		e.data = data
		e.hasData = true
		e.err = nil
		e.status = StatusSuccess
		e.updatedAt = c.now()
		if gen > e.invalidGen {
			e.invalidated = false
		}
	case apperrors.Is(err, context.Canceled) || ctx.Err() != nil:
		// cancelled fetches leave the previous outcome in place
		switch {
		case e.err != nil:
			e.status = StatusError
		case e.hasData:
			e.status = StatusSuccess
		default:
			e.status = StatusIdle
		}
	default:
		e.err = err
		e.status = StatusError
		c.logger.Warnf("[Query] fetch failed for %s: %v", e.hash, err)
	}

	if !e.removed {
		c.entries.Release(e.hash, e.gcTime)
	}
	listeners := e.listenersLocked()

	e.mu.Unlock()
	c.mu.Unlock()

	notify(listeners)
	return data, err
}

// all returns every live entry, most recently used first.
func (c *Client) all() []*entry {
	var entries []*entry
	c.entries.Range(func(_ string, v interface{}) bool {
		entries = append(entries, v.(*entry))
		return true
	})
	return entries
}

// Invalidate marks every entry whose key starts with prefix as stale.
// The next Mount of an observer refetches it. Returns the number of entries marked.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	entries := c.all()
	c.mu.Unlock()

	n := 0
	for _, e := range entries {
		if !prefix.isPrefixHash(e.hash) {
			continue
		}
		e.mu.Lock()
		e.invalidated = true
		e.invalidGen = e.generation
		listeners := e.listenersLocked()
		e.mu.Unlock()
		notify(listeners)
		n++
	}
	return n
}

// Remove drops the entry for key. Results of fetches still in flight for it are discarded.
func (c *Client) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := key.Hash()
	e := c.lookup(hash)
	if e == nil {
		return
	}
	c.entries.Delete(hash)
	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
}

// Clear drops every entry.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.all() {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
	c.entries.Clear()
}

// GarbageCollect removes unobserved entries whose GC window has elapsed.
func (c *Client) GarbageCollect() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.CleanExpired()
}

// Len returns the number of cached entries.
func (c *Client) Len() int {
	return c.entries.Len()
}

// Entries returns a snapshot of every cached entry, sorted by key.
func (c *Client) Entries() []EntrySnapshot {
	c.mu.Lock()
	entries := c.all()
	c.mu.Unlock()

	now := c.now()
	snapshots := make([]EntrySnapshot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		s := EntrySnapshot{
			Key:        e.hash,
			Status:     e.status,
			HasData:    e.hasData,
			IsFetching: e.fetching > 0,
			IsStale:    e.stale(now, e.staleTime),
			Observers:  e.observers,
			Generation: e.generation,
			UpdatedAt:  e.updatedAt,
		}
		if e.err != nil {
			s.Error = e.err.Error()
		}
		e.mu.Unlock()
		snapshots = append(snapshots, s)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Key < snapshots[j].Key
	})
	return snapshots
}

// SetQueryData seeds key with value as a successful result. Any fetch still
// in flight for key is superseded. An existing entry keeps its stale and GC
// windows.
func (c *Client) SetQueryData(key Key, value any) {
	c.mu.Lock()
	e := c.lookup(key.Hash())
	if e == nil {
		e = c.ensureLocked(key, DefaultOptions())
	}
	c.mu.Unlock()

	e.mu.Lock()
	e.generation++
	e.running = false
	e.nextPage = false
	e.data = value
	e.hasData = true
	e.err = nil
	e.status = StatusSuccess
	e.updatedAt = c.now()
	e.invalidated = false
	listeners := e.listenersLocked()
	e.mu.Unlock()

	notify(listeners)
}

// GetQueryData returns the cached data for key.
func (c *Client) GetQueryData(key Key) (any, bool) {
	e := c.lookup(key.Hash())
	if e == nil {
		return nil, false
	}
	s := e.state()
	return s.data, s.hasData
}

// QueryData is the typed form of GetQueryData.
func QueryData[T any](c *Client, key Key) (T, bool) {
	var zero T
	v, ok := c.GetQueryData(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
