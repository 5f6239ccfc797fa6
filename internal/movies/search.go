package movies

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cehbz/torrentname"

	"github.com/amaumene/movieshelf/internal/constants"
	"github.com/amaumene/movieshelf/internal/models"
	"github.com/amaumene/movieshelf/internal/query"
	"github.com/amaumene/movieshelf/pkg/logger"
)

// SearchInput is normalized search text.
type SearchInput struct {
	Query string
	Year  int
}

// ParseSearchInput trims text. Release-style names such as
// "The.Matrix.1999.1080p.BluRay.x264" are reduced to title and year.
func ParseSearchInput(text string) SearchInput {
	trimmed := strings.TrimSpace(text)
	if !looksLikeRelease(trimmed) {
		return SearchInput{Query: trimmed}
	}

	parsed := torrentname.Parse(trimmed)
	if parsed == nil || strings.TrimSpace(parsed.Title) == "" || !hasReleaseTags(parsed) {
		return SearchInput{Query: trimmed}
	}
	return SearchInput{Query: strings.TrimSpace(parsed.Title), Year: parsed.Year}
}

// hasReleaseTags reports whether the parser found metadata beyond a title,
// so dotted titles such as "E.T." are searched as typed.
func hasReleaseTags(info *torrentname.TorrentInfo) bool {
	return info.Year > 0 || info.Resolution != "" || info.Source != "" || info.Codec != ""
}

func looksLikeRelease(text string) bool {
	return text != "" && !strings.ContainsAny(text, " \t") && strings.ContainsAny(text, "._")
}

type ViewState string

const (
	ViewPrompt  ViewState = "prompt"
	ViewLoading ViewState = "loading"
	ViewEmpty   ViewState = "empty"
	ViewResults ViewState = "results"
	ViewError   ViewState = "error"
)

// View is what the search screen renders.
type View struct {
	State        ViewState             `json:"state"`
	Query        string                `json:"query"`
	Results      []models.MovieSummary `json:"results,omitempty"`
	TotalResults int                   `json:"total_results"`
	Error        error                 `json:"-"`
}

// Search drives the search screen: input is debounced before it becomes the
// active query, and short inputs never reach the network.
type Search struct {
	ctx       context.Context
	queries   *Queries
	debouncer *query.Debouncer[string]
	logger    logger.Logger

	mu        sync.Mutex
	input     string
	text      string
	current   *query.Query[*models.MoviesResponse]
	unlisten  func()
	listeners map[int]func(View)
	nextID    int
}

// NewSearch creates a controller. Settled inputs are fetched in the
// background under ctx. A non-positive delay uses the default debounce.
func NewSearch(ctx context.Context, queries *Queries, delay time.Duration, log logger.Logger) *Search {
	if delay <= 0 {
		delay = constants.SearchDebounce
	}
	if log == nil {
		log = logger.NewNop()
	}
	s := &Search{
		ctx:     ctx,
		queries: queries,
		logger:  log,
	}
	s.debouncer = query.NewDebouncer(delay, "", s.settle)
	return s
}

// SetInput records raw input. The active query changes once the input has
// been stable for the debounce delay.
func (s *Search) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.debouncer.Set(text)
}

func (s *Search) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Query returns the settled search text.
func (s *Search) Query() string {
	return s.debouncer.Value()
}

// Flush settles pending input immediately.
func (s *Search) Flush() {
	s.debouncer.Flush()
}

func (s *Search) settle(text string) {
	q := s.activate(text)
	if q != nil && q.Enabled() {
		// attached by activate; the background load adds no observer
		go q.Fetch(s.ctx)
	}
	s.changed()
}

// activate swaps the active query for text, attaching it under s.mu so
// Close always sees it, and returns it.
func (s *Search) activate(text string) *query.Query[*models.MoviesResponse] {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.queries.SearchMovies(text)
	if s.current != nil && s.current.Key().Hash() == next.Key().Hash() {
		s.text = text
		return s.current
	}

	if s.current != nil {
		s.unlisten()
		s.current.Close()
	}
	s.text = text
	s.current = next
	next.Attach()
	s.unlisten = next.Subscribe(func(query.Result[*models.MoviesResponse]) { s.changed() })
	s.logger.Debugf("[Search] query set to %q", text)
	return next
}

// Refresh loads the active query and returns the resulting view.
func (s *Search) Refresh(ctx context.Context) View {
	q := s.active()
	if q != nil {
		q.Mount(ctx)
	}
	return s.View()
}

// Retry refetches the active query with the same key.
func (s *Search) Retry(ctx context.Context) View {
	q := s.active()
	if q != nil && q.Enabled() {
		q.Refetch(ctx)
	}
	return s.View()
}

func (s *Search) active() *query.Query[*models.MoviesResponse] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// View derives the screen state from the settled text and its query.
func (s *Search) View() View {
	s.mu.Lock()
	text := s.text
	q := s.current
	s.mu.Unlock()

	view := View{Query: strings.TrimSpace(text)}
	if q == nil || !q.Enabled() {
		view.State = ViewPrompt
		return view
	}

	r := q.Result()
	switch {
	case r.IsLoading || (!r.HasData && r.Status == query.StatusPending):
		view.State = ViewLoading
	case r.Error != nil && r.Status == query.StatusError:
		view.State = ViewError
		view.Error = r.Error
	case !r.HasData || r.Data == nil || len(r.Data.Results) == 0:
		view.State = ViewEmpty
	default:
		view.State = ViewResults
		view.Results = r.Data.Results
		view.TotalResults = r.Data.TotalResults
	}
	return view
}

// Subscribe registers fn for every view change.
func (s *Search) Subscribe(fn func(View)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listeners == nil {
		s.listeners = make(map[int]func(View))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Search) changed() {
	s.mu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(View), len(ids))
	for i, id := range ids {
		fns[i] = s.listeners[id]
	}
	s.mu.Unlock()

	if len(fns) == 0 {
		return
	}
	view := s.View()
	for _, fn := range fns {
		fn(view)
	}
}

// Close discards pending input and detaches the active query.
func (s *Search) Close() {
	s.debouncer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.unlisten()
		s.current.Close()
		s.current = nil
	}
}
