package query

import (
	"context"

	apperrors "github.com/amaumene/movieshelf/internal/errors"
	"github.com/amaumene/movieshelf/internal/models"
)

// PageFetcher loads one page. Pages are 1-based.
type PageFetcher[T any] func(ctx context.Context, page int) (*models.PaginatedResponse[T], error)

// InfiniteData is the cached value of an infinite query. Pages[i] was
// fetched with PageParams[i].
type InfiniteData[T any] struct {
	Pages      []models.PaginatedResponse[T]
	PageParams []int
}

// withPage returns a copy of d with resp appended as page param.
func (d InfiniteData[T]) withPage(param int, resp models.PaginatedResponse[T]) InfiniteData[T] {
	pages := make([]models.PaginatedResponse[T], len(d.Pages), len(d.Pages)+1)
	copy(pages, d.Pages)
	params := make([]int, len(d.PageParams), len(d.PageParams)+1)
	copy(params, d.PageParams)
	return InfiniteData[T]{
		Pages:      append(pages, resp),
		PageParams: append(params, param),
	}
}

// Items concatenates the results of every page in page order.
func (d InfiniteData[T]) Items() []T {
	var n int
	for _, p := range d.Pages {
		n += len(p.Results)
	}
	items := make([]T, 0, n)
	for _, p := range d.Pages {
		items = append(items, p.Results...)
	}
	return items
}

// NextPage derives the next page param from the last loaded page.
func (d InfiniteData[T]) NextPage() (int, bool) {
	if len(d.Pages) == 0 {
		return 0, false
	}
	return d.Pages[len(d.Pages)-1].NextPage()
}

type InfiniteResult[T any] struct {
	Result[InfiniteData[T]]
	Items              []T
	HasNextPage        bool
	IsFetchingNextPage bool
}

// InfiniteQuery observes a cursor-chained paginated key.
type InfiniteQuery[T any] struct {
	query     *Query[InfiniteData[T]]
	fetchPage PageFetcher[T]
}

func NewInfiniteQuery[T any](c *Client, key Key, fetchPage PageFetcher[T], opts Options) *InfiniteQuery[T] {
	iq := &InfiniteQuery[T]{fetchPage: fetchPage}
	iq.query = NewQuery[InfiniteData[T]](c, key, iq.fetchAll, opts)
	return iq
}

func (iq *InfiniteQuery[T]) Key() Key { return iq.query.Key() }

// fetchAll loads page 1, then re-fetches as many pages as were loaded
// before, following each page's cursor.
func (iq *InfiniteQuery[T]) fetchAll(ctx context.Context) (InfiniteData[T], error) {
	loaded := 1
	if e := iq.query.current(); e != nil {
		if s := e.state(); s.hasData {
			if d, ok := s.data.(InfiniteData[T]); ok && len(d.Pages) > 0 {
				loaded = len(d.Pages)
			}
		}
	}

	var data InfiniteData[T]
	page := 1
	for i := 0; i < loaded; i++ {
		resp, err := iq.fetchPage(ctx, page)
		if err != nil {
			return InfiniteData[T]{}, err
		}
		data = data.withPage(page, *resp)

		next, ok := resp.NextPage()
		if !ok {
			break
		}
		page = next
	}
	return data, nil
}

func (iq *InfiniteQuery[T]) Mount(ctx context.Context) InfiniteResult[T] {
	iq.query.Mount(ctx)
	return iq.Result()
}

// Refetch reloads every loaded page starting from page 1.
func (iq *InfiniteQuery[T]) Refetch(ctx context.Context) InfiniteResult[T] {
	r := iq.query.Refetch(ctx)
	out := iq.Result()
	out.Error = r.Error
	return out
}

// FetchNextPage appends the page after the last loaded one. It is a no-op
// when there is no next page or a fetch is already in flight for the key.
func (iq *InfiniteQuery[T]) FetchNextPage(ctx context.Context) InfiniteResult[T] {
	if !iq.query.opts.Enabled {
		r := iq.Result()
		r.Error = apperrors.ErrQueryDisabled
		return r
	}

	e := iq.query.current()
	if e == nil {
		return iq.Result()
	}
	s := e.state()
	if s.isFetching || !s.hasData {
		return iq.Result()
	}
	data, ok := s.data.(InfiniteData[T])
	if !ok {
		return iq.Result()
	}
	next, ok := data.NextPage()
	if !ok {
		return iq.Result()
	}

	fn := func(ctx context.Context) (any, error) {
		resp, err := iq.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		return data.withPage(next, *resp), nil
	}
	if _, err := iq.query.client.fetch(ctx, e, iq.query.opts, fetchNext, fn); err != nil && ctx.Err() != nil {
		r := iq.Result()
		r.Error = ctx.Err()
		return r
	}
	return iq.Result()
}

func (iq *InfiniteQuery[T]) HasNextPage() bool {
	return iq.Result().HasNextPage
}

// Items returns every loaded item in page order.
func (iq *InfiniteQuery[T]) Items() []T {
	return iq.Result().Items
}

func (iq *InfiniteQuery[T]) Result() InfiniteResult[T] {
	var r InfiniteResult[T]
	e := iq.query.current()
	if e == nil {
		r.Result = iq.query.emptyResult()
		return r
	}

	s := e.state()
	r.Result = iq.query.resultOf(s)
	r.IsFetchingNextPage = s.nextPage
	if r.HasData {
		r.Items = r.Data.Items()
		_, r.HasNextPage = r.Data.NextPage()
	}
	return r
}

func (iq *InfiniteQuery[T]) Subscribe(fn func(InfiniteResult[T])) func() {
	return iq.query.Subscribe(func(Result[InfiniteData[T]]) {
		fn(iq.Result())
	})
}

func (iq *InfiniteQuery[T]) Close() {
	iq.query.Close()
}
