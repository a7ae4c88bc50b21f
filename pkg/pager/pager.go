// Package pager accumulates cursor-paginated results.
package pager

import (
	"context"
	stderrors "errors"
	"sync"

	"xhstoolbox/pkg/logger"
)

// ErrStale is returned when a response arrived after a newer Refresh or
// Reset and was dropped.
var ErrStale = stderrors.New("stale page discarded")

// Page is one server answer
type Page[T any] struct {
	Items   []T
	Cursor  string
	HasMore bool
}

// FetchFunc loads the page that follows cursor. An empty cursor asks for the
// first page.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Pager keeps the ordered items loaded so far and the cursor for the next
// page. Every Refresh and Reset takes a new request token; answers carrying
// an older token are discarded.
type Pager[T any] struct {
	mu      sync.Mutex
	fetch   FetchFunc[T]
	items   []T
	cursor  string
	hasMore bool
	loading bool
	token   uint64
	logger  logger.Logger
}

// New creates a pager over fetch. Nothing is loaded until Refresh.
func New[T any](fetch FetchFunc[T], log logger.Logger) *Pager[T] {
	return &Pager[T]{
		fetch:  fetch,
		logger: logger.OrGlobal(log).WithField("component", "pager"),
	}
}

// Refresh drops everything and loads the first page
func (p *Pager[T]) Refresh(ctx context.Context) ([]T, error) {
	p.mu.Lock()
	p.token++
	token := p.token
	fetch := p.fetch
	p.items = nil
	p.cursor = ""
	p.hasMore = false
	p.loading = true
	p.mu.Unlock()

	return p.load(ctx, fetch, token, "")
}

// LoadMore fetches the page after the last cursor and appends it. It does
// nothing when there are no more pages or a load is already running.
func (p *Pager[T]) LoadMore(ctx context.Context) ([]T, error) {
	p.mu.Lock()
	if !p.hasMore || p.loading {
		p.mu.Unlock()
		return nil, nil
	}
	token := p.token
	fetch := p.fetch
	cursor := p.cursor
	p.loading = true
	p.mu.Unlock()

	return p.load(ctx, fetch, token, cursor)
}

// Reset switches to a new source, for example after a filter change. Loads
// still running for the old source are discarded when they return.
func (p *Pager[T]) Reset(fetch FetchFunc[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token++
	p.fetch = fetch
	p.items = nil
	p.cursor = ""
	p.hasMore = false
	p.loading = false
}

// load returns the items of the fetched page
func (p *Pager[T]) load(ctx context.Context, fetch FetchFunc[T], token uint64, cursor string) ([]T, error) {
	page, err := fetch(ctx, cursor)

	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.token {
		p.logger.DebugWithFields("Discarding stale page", map[string]interface{}{
			"token":   token,
			"current": p.token,
			"cursor":  cursor,
		})
		return nil, ErrStale
	}
	p.loading = false

	if err != nil {
		return nil, err
	}

	p.items = append(p.items, page.Items...)
	p.cursor = page.Cursor
	p.hasMore = page.HasMore
	return page.Items, nil
}

// Items returns a copy of everything loaded so far, in load order
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, len(p.items))
	copy(out, p.items)
	return out
}

// Len returns the number of loaded items
func (p *Pager[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Cursor returns the cursor the next LoadMore will send
func (p *Pager[T]) Cursor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// HasMore reports whether the server announced another page
func (p *Pager[T]) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Loading reports whether a fetch is running
func (p *Pager[T]) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}
