package pager

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xhstoolbox/pkg/logger"
)

func numbered(prefix string, from, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, from+i)
	}
	return out
}

// scripted serves pages keyed by the cursor it receives
type scripted struct {
	mu      sync.Mutex
	pages   map[string]Page[string]
	cursors []string
}

func (s *scripted) fetch(_ context.Context, cursor string) (Page[string], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors = append(s.cursors, cursor)
	page, ok := s.pages[cursor]
	if !ok {
		return Page[string]{}, fmt.Errorf("unexpected cursor %q", cursor)
	}
	return page, nil
}

func TestRefreshThenLoadMoreAppends(t *testing.T) {
	src := &scripted{pages: map[string]Page[string]{
		"":   {Items: numbered("n", 0, 20), Cursor: "c1", HasMore: true},
		"c1": {Items: numbered("n", 20, 20), Cursor: "c2", HasMore: true},
		"c2": {Items: numbered("n", 40, 5), Cursor: "", HasMore: false},
	}}
	p := New[string](src.fetch, logger.NewNopLogger())

	first, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 20)
	assert.Equal(t, "c1", p.Cursor())
	assert.True(t, p.HasMore())

	more, err := p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, numbered("n", 20, 20), more)
	assert.Equal(t, 40, p.Len())
	assert.Equal(t, append(numbered("n", 0, 20), numbered("n", 20, 20)...), p.Items())
	assert.Equal(t, "c2", p.Cursor())

	_, err = p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45, p.Len())
	assert.False(t, p.HasMore())

	// Exhausted: no further request is made.
	none, err := p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, []string{"", "c1", "c2"}, src.cursors)
}

func TestLoadMoreKeepsDuplicatesAndOrder(t *testing.T) {
	src := &scripted{pages: map[string]Page[string]{
		"":  {Items: []string{"b", "a"}, Cursor: "x", HasMore: true},
		"x": {Items: []string{"a", "c"}, Cursor: "y", HasMore: false},
	}}
	p := New[string](src.fetch, logger.NewNopLogger())

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)
	_, err = p.LoadMore(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "a", "c"}, p.Items())
}

func TestLoadMoreFailureKeepsItems(t *testing.T) {
	fail := true
	p := New[string](func(_ context.Context, cursor string) (Page[string], error) {
		if cursor == "" {
			return Page[string]{Items: []string{"a"}, Cursor: "c1", HasMore: true}, nil
		}
		if fail {
			return Page[string]{}, stderrors.New("network down")
		}
		return Page[string]{Items: []string{"b"}, HasMore: false}, nil
	}, logger.NewNopLogger())

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	_, err = p.LoadMore(context.Background())
	assert.EqualError(t, err, "network down")
	assert.Equal(t, []string{"a"}, p.Items())
	assert.Equal(t, "c1", p.Cursor())
	assert.True(t, p.HasMore())
	assert.False(t, p.Loading())

	fail = false
	_, err = p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p.Items())
}

func TestRefreshDiscardsInFlightLoadMore(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	tl := logger.NewTestLogger()

	p := New[string](func(_ context.Context, cursor string) (Page[string], error) {
		switch cursor {
		case "":
			return Page[string]{Items: []string{"fresh"}, Cursor: "c1", HasMore: true}, nil
		default:
			close(started)
			<-release
			return Page[string]{Items: []string{"late"}, Cursor: "c9", HasMore: true}, nil
		}
	}, tl)

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.LoadMore(context.Background())
		errCh <- err
	}()
	<-started
	assert.True(t, p.Loading())

	// A second LoadMore while one is running is a no-op.
	items, err := p.LoadMore(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, items)

	_, err = p.Refresh(context.Background())
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-errCh, ErrStale)
	assert.Equal(t, []string{"fresh"}, p.Items())
	assert.Equal(t, "c1", p.Cursor())
	assert.True(t, tl.HasMessage("Discarding stale page"))
}

func TestResetSwitchesSource(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	slow := func(_ context.Context, cursor string) (Page[string], error) {
		close(started)
		<-release
		return Page[string]{Items: []string{"old-filter"}, HasMore: true, Cursor: "o1"}, nil
	}
	fast := func(_ context.Context, cursor string) (Page[string], error) {
		return Page[string]{Items: []string{"new-filter"}, HasMore: false}, nil
	}

	p := New[string](slow, logger.NewNopLogger())

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Refresh(context.Background())
		errCh <- err
	}()
	<-started

	p.Reset(fast)
	assert.Empty(t, p.Items())
	assert.False(t, p.HasMore())

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	close(release)
	assert.ErrorIs(t, <-errCh, ErrStale)
	assert.Equal(t, []string{"new-filter"}, p.Items())
	assert.False(t, p.HasMore())
}
