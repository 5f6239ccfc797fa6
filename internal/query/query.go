package query

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/amaumene/movieshelf/internal/errors"
)

// Fetcher loads the data of one query.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Result is the observable state of a query.
type Result[T any] struct {
	Data       T
	HasData    bool
	Status     Status
	Error      error
	IsLoading  bool // fetching with nothing to show yet
	IsFetching bool
	UpdatedAt  time.Time
}

func (r Result[T]) IsSuccess() bool { return r.Status == StatusSuccess }
func (r Result[T]) IsError() bool   { return r.Status == StatusError }

// Query observes one key of a Client.
type Query[T any] struct {
	client *Client
	key    Key
	hash   string
	fetch  Fetcher[T]
	opts   Options

	mu        sync.Mutex
	entry     *entry
	unlisten  func()
	listeners map[int]func(Result[T])
	nextID    int
}

func NewQuery[T any](c *Client, key Key, fetch Fetcher[T], opts Options) *Query[T] {
	return &Query[T]{
		client: c,
		key:    key,
		hash:   key.Hash(),
		fetch:  fetch,
		opts:   opts.normalize(),
	}
}

func (q *Query[T]) Key() Key      { return q.key }
func (q *Query[T]) Enabled() bool { return q.opts.Enabled }

func (q *Query[T]) run(ctx context.Context) (any, error) {
	return q.fetch(ctx)
}

// attach observes the entry for the key, re-attaching when the observed
// entry was removed from the client.
func (q *Query[T]) attach() *entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.entry != nil && !q.entry.isRemoved() {
		return q.entry
	}
	if q.entry != nil {
		q.unlisten()
		q.client.unobserve(q.entry)
	}

	e := q.client.observe(q.key, q.opts)
	q.entry = e
	q.unlisten = e.subscribe(q.changed)
	return e
}

// current returns the attached entry, or the cached one when not mounted.
func (q *Query[T]) current() *entry {
	q.mu.Lock()
	e := q.entry
	q.mu.Unlock()

	if e != nil && !e.isRemoved() {
		return e
	}
	return q.client.lookup(q.hash)
}

// Mount attaches the query to its entry. An enabled query whose entry is
// missing or stale fetches it, joining any fetch already in flight, and
// blocks until it settles. Fresh data is returned without a network call.
func (q *Query[T]) Mount(ctx context.Context) Result[T] {
	e := q.attach()
	if !q.opts.Enabled {
		return q.Result()
	}
	return q.load(ctx, e, fetchJoin)
}

// Attach observes the entry without fetching it. The entry stays pinned
// until Close.
func (q *Query[T]) Attach() {
	q.attach()
}

// Fetch loads a missing or stale entry like Mount but never attaches an
// observer, so a Close that races with it cannot leave the entry pinned.
func (q *Query[T]) Fetch(ctx context.Context) Result[T] {
	if !q.opts.Enabled {
		return q.Result()
	}
	e := q.current()
	if e == nil {
		e = q.client.ensure(q.key, q.opts)
	}
	return q.load(ctx, e, fetchJoin)
}

func (q *Query[T]) load(ctx context.Context, e *entry, mode fetchMode) Result[T] {
	if _, err := q.client.fetch(ctx, e, q.opts, mode, q.run); err != nil && ctx.Err() != nil {
		r := q.Result()
		r.Error = ctx.Err()
		return r
	}
	return q.Result()
}

// Refetch starts a new fetch regardless of freshness. A disabled query
// reports ErrQueryDisabled and leaves the cache untouched.
func (q *Query[T]) Refetch(ctx context.Context) Result[T] {
	if !q.opts.Enabled {
		r := q.Result()
		r.Error = apperrors.ErrQueryDisabled
		return r
	}

	e := q.current()
	if e == nil {
		e = q.client.ensure(q.key, q.opts)
	}
	return q.load(ctx, e, fetchForce)
}

// Result returns the current state without fetching.
func (q *Query[T]) Result() Result[T] {
	e := q.current()
	if e == nil {
		return q.emptyResult()
	}
	return q.resultOf(e.state())
}

func (q *Query[T]) emptyResult() Result[T] {
	if q.opts.Enabled {
		return Result[T]{Status: StatusPending}
	}
	return Result[T]{Status: StatusIdle}
}

func (q *Query[T]) resultOf(s entryState) Result[T] {
	r := Result[T]{
		Status:     s.status,
		Error:      s.err,
		IsFetching: s.isFetching,
		UpdatedAt:  s.updatedAt,
	}
	if s.hasData {
		if data, ok := s.data.(T); ok {
			r.Data = data
			r.HasData = true
		}
	}

	switch {
	case !q.opts.Enabled && !r.HasData:
		r.Status = StatusIdle
		r.Error = nil
	case r.Status == StatusIdle && q.opts.Enabled:
		r.Status = StatusPending
	}
	r.IsLoading = !r.HasData && r.IsFetching
	return r
}

// Subscribe registers fn for every state change of the mounted query.
func (q *Query[T]) Subscribe(fn func(Result[T])) func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.listeners == nil {
		q.listeners = make(map[int]func(Result[T]))
	}
	id := q.nextID
	q.nextID++
	q.listeners[id] = fn

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.listeners, id)
	}
}

func (q *Query[T]) changed() {
	q.mu.Lock()
	ids := make([]int, 0, len(q.listeners))
	for id := range q.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Result[T]), len(ids))
	for i, id := range ids {
		fns[i] = q.listeners[id]
	}
	q.mu.Unlock()

	if len(fns) == 0 {
		return
	}
	r := q.Result()
	for _, fn := range fns {
		fn(r)
	}
}

// Close detaches the query. The entry stays cached for its GC window.
func (q *Query[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.entry == nil {
		return
	}
	q.unlisten()
	q.client.unobserve(q.entry)
	q.entry = nil
	q.unlisten = nil
}
