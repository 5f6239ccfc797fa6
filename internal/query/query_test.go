package query

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/amaumene/movieshelf/internal/errors"
	"github.com/amaumene/movieshelf/pkg/logger"
)

func newTestClient() *Client {
	return NewClient(100, logger.NewNop())
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.RetryDelay = func(int) time.Duration { return 0 }
	return opts
}

func TestKeyHash(t *testing.T) {
	assert.Equal(t, `["movie",550,"credits"]`, Key{"movie", 550, "credits"}.Hash())
	assert.Equal(t, Key{"movie", 550}.Hash(), Key{"movie", 550}.Hash())
	assert.NotEqual(t, Key{"movie", 550}.Hash(), Key{"movie", "550"}.Hash())

	assert.True(t, Key{"movies", "popular", 1}.HasPrefix(Key{"movies"}))
	assert.True(t, Key{"movies", "popular", 1}.HasPrefix(Key{"movies", "popular", 1}))
	assert.False(t, Key{"movies", "popular", 1}.HasPrefix(Key{"movie"}))
	assert.False(t, Key{"movies"}.HasPrefix(Key{"movies", "popular"}))
	assert.True(t, Key{"movies"}.HasPrefix(Key{}))
}

func TestDefaultRetryDelay(t *testing.T) {
	assert.Equal(t, 1*time.Second, DefaultRetryDelay(0))
	assert.Equal(t, 2*time.Second, DefaultRetryDelay(1))
	assert.Equal(t, 4*time.Second, DefaultRetryDelay(2))
	assert.Equal(t, 30*time.Second, DefaultRetryDelay(10))
}

func TestMountFetchesAndCaches(t *testing.T) {
	c := newTestClient()
	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "data", nil
	}
	opts := fastOptions()
	opts.StaleTime = 5 * time.Minute

	q1 := NewQuery(c, Key{"movies", "popular", 1}, fetch, opts)
	r := q1.Mount(context.Background())

	assert.Equal(t, StatusSuccess, r.Status)
	assert.True(t, r.HasData)
	assert.Equal(t, "data", r.Data)
	assert.False(t, r.IsLoading)

	// a second observer of a fresh key is served from cache
	q2 := NewQuery(c, Key{"movies", "popular", 1}, fetch, opts)
	r = q2.Mount(context.Background())

	assert.Equal(t, "data", r.Data)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMountRefetchesStaleData(t *testing.T) {
	c := newTestClient()
	var calls int32
	fetch := func(ctx context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}
	opts := fastOptions()
	opts.StaleTime = 0

	NewQuery(c, Key{"k"}, fetch, opts).Mount(context.Background())
	r := NewQuery(c, Key{"k"}, fetch, opts).Mount(context.Background())

	assert.Equal(t, int32(2), r.Data)
}

func TestConcurrentMountsShareOneFetch(t *testing.T) {
	c := newTestClient()
	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	opts := fastOptions()
	opts.StaleTime = time.Hour

	const observers = 5
	results := make([]Result[string], observers)
	var wg sync.WaitGroup
	for i := 0; i < observers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = NewQuery(c, Key{"movie", 550}, fetch, opts).Mount(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	// give the remaining observers time to join
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "shared", r.Data)
	}
}

func TestRetryThenTerminalError(t *testing.T) {
	c := newTestClient()
	var calls int32
	boom := stderrors.New("boom")
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", boom
	}

	q := NewQuery(c, Key{"movie", 1}, fetch, fastOptions())
	r := q.Mount(context.Background())

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, StatusError, r.Status)
	assert.ErrorIs(t, r.Error, boom)
	assert.False(t, r.HasData)
	assert.False(t, r.IsFetching)

	// the error is kept until an explicit refetch
	assert.Equal(t, StatusError, q.Result().Status)
}

func TestRetrySucceedsOnSecondAttempt(t *testing.T) {
	c := newTestClient()
	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", stderrors.New("transient")
		}
		return "ok", nil
	}

	r := NewQuery(c, Key{"k"}, fetch, fastOptions()).Mount(context.Background())

	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, "ok", r.Data)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestContractErrorsAreNotRetried(t *testing.T) {
	c := newTestClient()
	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", apperrors.NewInvalidIDError("movie", 0)
	}

	r := NewQuery(c, Key{"movie", 0}, fetch, fastOptions()).Mount(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.ErrorIs(t, r.Error, apperrors.ErrInvalidID)
}

func TestRefetchStartsNewFetch(t *testing.T) {
	c := newTestClient()
	var calls int32
	fetch := func(ctx context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}
	opts := fastOptions()
	opts.StaleTime = time.Hour

	q := NewQuery(c, Key{"k"}, fetch, opts)
	q.Mount(context.Background())
	r := q.Refetch(context.Background())

	assert.Equal(t, int32(2), r.Data)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRefetchRecoversFromError(t *testing.T) {
	c := newTestClient()
	fail := true
	fetch := func(ctx context.Context) (string, error) {
		if fail {
			return "", stderrors.New("down")
		}
		return "up", nil
	}
	opts := fastOptions()
	opts.Retry = 0

	q := NewQuery(c, Key{"k"}, fetch, opts)
	assert.Equal(t, StatusError, q.Mount(context.Background()).Status)

	fail = false
	r := q.Refetch(context.Background())
	assert.Equal(t, StatusSuccess, r.Status)
	assert.NoError(t, r.Error)
	assert.Equal(t, "up", r.Data)
}

func TestDisabledQueryIsIdle(t *testing.T) {
	c := newTestClient()
	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "x", nil
	}
	opts := fastOptions()
	opts.Enabled = false

	q := NewQuery(c, Key{"movie", 0}, fetch, opts)
	r := q.Mount(context.Background())

	assert.Equal(t, StatusIdle, r.Status)
	assert.NoError(t, r.Error)
	assert.False(t, r.IsFetching)

	r = q.Refetch(context.Background())
	assert.ErrorIs(t, r.Error, apperrors.ErrQueryDisabled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestLastStartedFetchWins(t *testing.T) {
	c := newTestClient()
	releaseFirst := make(chan struct{})
	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-releaseFirst
			return "old", nil
		}
		return "new", nil
	}

	q := NewQuery(c, Key{"k"}, fetch, fastOptions())
	done := make(chan struct{})
	go func() {
		q.Mount(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	r := q.Refetch(context.Background())
	assert.Equal(t, "new", r.Data)

	close(releaseFirst)
	<-done
	assert.Equal(t, "new", q.Result().Data)
}

func TestRemoveDiscardsInFlightResult(t *testing.T) {
	c := newTestClient()
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	}

	done := make(chan struct{})
	go func() {
		NewQuery(c, Key{"k"}, fetch, fastOptions()).Mount(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond)

	c.Remove(Key{"k"})
	close(release)
	<-done

	_, ok := c.GetQueryData(Key{"k"})
	assert.False(t, ok)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	c := newTestClient()
	q := NewQuery(c, Key{"k"}, func(ctx context.Context) (string, error) { return "v", nil }, fastOptions())

	var mu sync.Mutex
	var statuses []Status
	unsubscribe := q.Subscribe(func(r Result[string]) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, r.Status)
	})
	defer unsubscribe()

	q.Mount(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, statuses)
	assert.Equal(t, StatusSuccess, statuses[len(statuses)-1])
}

func TestInvalidateMarksStale(t *testing.T) {
	c := newTestClient()
	var calls int32
	fetch := func(ctx context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}
	opts := fastOptions()
	opts.StaleTime = time.Hour

	q := NewQuery(c, Key{"movies", "popular", 1}, fetch, opts)
	q.Mount(context.Background())

	assert.Equal(t, 1, c.Invalidate(Key{"movies"}))
	assert.Equal(t, 0, c.Invalidate(Key{"person"}))

	r := q.Mount(context.Background())
	assert.Equal(t, int32(2), r.Data)
}

func TestInvalidateDuringFetchKeepsEntryStale(t *testing.T) {
	c := newTestClient()
	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int32, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			<-release
		}
		return n, nil
	}
	opts := fastOptions()
	opts.StaleTime = time.Hour

	q := NewQuery(c, Key{"movies", "popular", 1}, fetch, opts)
	defer q.Close()

	done := make(chan Result[int32], 1)
	go func() { done <- q.Mount(context.Background()) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, 1, c.Invalidate(Key{"movies"}))
	close(release)
	assert.Equal(t, int32(1), (<-done).Data)

	// the result fetched before Invalidate does not count as fresh
	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsStale)

	r := q.Mount(context.Background())
	assert.Equal(t, int32(2), r.Data)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.False(t, c.Entries()[0].IsStale)
}

func TestMountAfterInvalidateDoesNotJoinOlderFetch(t *testing.T) {
	c := newTestClient()
	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int32, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			<-release
		}
		return n, nil
	}
	opts := fastOptions()
	opts.StaleTime = time.Hour

	first := NewQuery(c, Key{"movies", "popular", 1}, fetch, opts)
	defer first.Close()
	done := make(chan Result[int32], 1)
	go func() { done <- first.Mount(context.Background()) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	c.Invalidate(Key{"movies"})

	second := NewQuery(c, Key{"movies", "popular", 1}, fetch, opts)
	defer second.Close()
	r := second.Mount(context.Background())
	assert.Equal(t, int32(2), r.Data)

	close(release)
	<-done
	// the older generation's result is discarded
	assert.Equal(t, int32(2), first.Result().Data)
	assert.False(t, c.Entries()[0].IsStale)
}

func TestGarbageCollectAfterLastObserverCloses(t *testing.T) {
	c := newTestClient()
	opts := fastOptions()
	opts.GCTime = time.Millisecond

	q := NewQuery(c, Key{"k"}, func(ctx context.Context) (string, error) { return "v", nil }, opts)
	q.Mount(context.Background())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 0, c.GarbageCollect(), "observed entries are pinned")

	q.Close()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, c.GarbageCollect())
	assert.Equal(t, 0, c.Len())
}

func TestSetQueryDataAndEntries(t *testing.T) {
	c := newTestClient()
	c.SetQueryData(Key{"movie", 550}, "fight club")

	v, ok := QueryData[string](c, Key{"movie", 550})
	assert.True(t, ok)
	assert.Equal(t, "fight club", v)

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, `["movie",550]`, entries[0].Key)
	assert.Equal(t, StatusSuccess, entries[0].Status)
	assert.True(t, entries[0].HasData)

	c.Clear()
	assert.Empty(t, c.Entries())
}

func TestSetQueryDataKeepsEntryWindows(t *testing.T) {
	c := newTestClient()
	var calls int32
	opts := fastOptions()
	opts.StaleTime = time.Hour

	q := NewQuery(c, Key{"movie", 550}, func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "fetched", nil
	}, opts)
	defer q.Close()
	q.Mount(context.Background())

	c.SetQueryData(Key{"movie", 550}, "seeded")

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsStale)

	r := q.Mount(context.Background())
	assert.Equal(t, "seeded", r.Data)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMountCancelledContext(t *testing.T) {
	c := newTestClient()
	fetch := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewQuery(c, Key{"k"}, fetch, fastOptions()).Mount(ctx)

	assert.ErrorIs(t, r.Error, context.Canceled)
	assert.False(t, r.HasData)
}
