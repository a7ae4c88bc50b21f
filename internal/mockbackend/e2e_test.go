package mockbackend_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xhstoolbox/internal/downloader"
	"xhstoolbox/internal/mockbackend"
	"xhstoolbox/pkg/config"
	"xhstoolbox/pkg/edgeproxy"
	"xhstoolbox/pkg/errors"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/login"
	"xhstoolbox/pkg/pager"
	"xhstoolbox/pkg/retry"
	"xhstoolbox/pkg/session"
	"xhstoolbox/pkg/storage"
	"xhstoolbox/pkg/xhs"
)

// stack is a backend behind the edge proxy with a client pointed at the proxy
type stack struct {
	backend *mockbackend.Server
	client  *xhs.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	backend := mockbackend.New()
	t.Cleanup(backend.Close)

	proxyCfg := config.DefaultConfig().Proxy
	proxyCfg.BackendOrigin = backend.URL()
	srv, err := edgeproxy.NewServer(&proxyCfg, logger.NewNopLogger())
	require.NoError(t, err)
	front := httptest.NewServer(srv)
	t.Cleanup(front.Close)

	backendCfg := config.DefaultConfig().Backend
	backendCfg.BaseURL = front.URL
	backendCfg.Timeout = 5 * time.Second
	client, err := xhs.NewClient(&backendCfg, logger.NewNopLogger())
	require.NoError(t, err)

	return &stack{backend: backend, client: client}
}

func TestQRLoginThroughProxy(t *testing.T) {
	s := newStack(t)
	s.backend.SetUser(xhs.LoginInfo{UserID: "u-42", Nickname: "Ann"})

	var mu sync.Mutex
	var statuses []login.Status
	flow := login.NewFlow(s.client, login.Options{
		PollInterval: 10 * time.Millisecond,
		OnStatus: func(st login.Status) {
			mu.Lock()
			statuses = append(statuses, st)
			mu.Unlock()
		},
		Logger: logger.NewNopLogger(),
	})
	defer flow.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// QR creation only succeeds when the guest cookie made the round trip.
	require.NoError(t, flow.Start(ctx))
	require.NotNil(t, flow.QRCode())
	assert.Equal(t, "qr-1", flow.QRCode().QRID)

	user, err := flow.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-42", user.UserID)
	assert.Equal(t, "Ann", user.Nickname)
	// A new flow starts in loading, so the first change reported is waiting.
	want := []login.Status{login.StatusWaiting, login.StatusScanned, login.StatusConfirmed}
	// Callbacks may trail Wait by a moment.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return assert.ObjectsAreEqual(want, statuses)
	}, time.Second, 5*time.Millisecond)

	sess, err := session.Open(ctx, session.NewMemoryStore(), logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, sess.Login(ctx, user))
	assert.True(t, sess.LoggedIn())

	me, err := s.client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-42", me.UserID)
}

func TestQRLoginExpires(t *testing.T) {
	s := newStack(t)
	s.backend.SetQRScript(0, "-1")

	flow := login.NewFlow(s.client, login.Options{
		PollInterval: 10 * time.Millisecond,
		Logger:       logger.NewNopLogger(),
	})
	defer flow.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, flow.Start(ctx))

	_, err := flow.Wait(ctx)
	assert.ErrorIs(t, err, login.ErrExpired)

	// A refresh issues a new code.
	require.NoError(t, flow.Refresh(ctx))
	assert.Equal(t, "qr-2", flow.QRCode().QRID)
}

func TestFeedPagingThroughProxy(t *testing.T) {
	s := newStack(t)
	notes := make([]xhs.NoteItem, 5)
	for i := range notes {
		notes[i] = xhs.NoteItem{NoteID: fmt.Sprintf("n%d", i), Title: fmt.Sprintf("note %d", i)}
	}
	s.backend.SetFeed("homefeed.food_v3", notes)

	ctx := context.Background()
	p := pager.New(s.client.FeedPages("homefeed.food_v3", 2), logger.NewNopLogger())

	_, err := p.Refresh(ctx)
	require.NoError(t, err)
	for p.HasMore() {
		_, err := p.LoadMore(ctx)
		require.NoError(t, err)
	}

	items := p.Items()
	require.Len(t, items, 5)
	for i, n := range items {
		assert.Equal(t, fmt.Sprintf("n%d", i), n.NoteID)
	}
	assert.Equal(t, []string{
		"/api/feed/homefeed/homefeed.food_v3?num=2",
		"/api/feed/homefeed/homefeed.food_v3?cursor=2&num=2",
		"/api/feed/homefeed/homefeed.food_v3?cursor=4&num=2",
	}, s.backend.Requested())
}

func TestBackendFailureSurfacesAsServerError(t *testing.T) {
	s := newStack(t)
	s.backend.FailNext("/api/user/me", http.StatusServiceUnavailable, 1)

	_, err := s.client.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeServerError))
	assert.True(t, errors.IsTransport(err))
}

func TestNoteDownloadThroughProxy(t *testing.T) {
	s := newStack(t)
	const noteID = "64a1b2c3d4e5f6a7b8c9d0e1"
	s.backend.AddImageNote(
		xhs.NoteItem{NoteID: noteID, Title: "Spring / trip"},
		map[string][]byte{"https://ci/a": []byte("AAA"), "https://ci/b": []byte("BB")},
		[]string{"https://ci/a", "https://ci/b"},
	)
	// First media fetch hits a flaky upstream.
	s.backend.FailNext("/api/media/download", http.StatusBadGateway, 1)

	dir := t.TempDir()
	store, err := storage.NewManager(dir, false)
	require.NoError(t, err)

	d := downloader.New(s.client, store, downloader.Options{
		Workers:      1,
		JobTimeout:   5 * time.Second,
		Retries:      2,
		RetryBackoff: retry.ConstantBackoff{Delay: time.Millisecond},
		SaveMetadata: true,
	}, logger.NewNopLogger())

	summary, err := d.Download(context.Background(), "https://www.xiaohongshu.com/explore/"+noteID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, int64(5), summary.Bytes)

	a, err := os.ReadFile(filepath.Join(dir, "Spring _ trip_"+noteID+"_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "AAA", string(a))
	assert.FileExists(t, filepath.Join(dir, noteID+".json"))
}

func TestVideoNoteDownload(t *testing.T) {
	s := newStack(t)
	const noteID = "64a1b2c3d4e5f6a7b8c9d0e2"
	s.backend.AddVideoNote(xhs.NoteItem{NoteID: noteID, Title: "clip"}, "https://cv/v.mp4", []byte("VIDEO"))

	dir := t.TempDir()
	store, err := storage.NewManager(dir, false)
	require.NoError(t, err)

	d := downloader.New(s.client, store, downloader.Options{Workers: 1}, logger.NewNopLogger())
	summary, err := d.Download(context.Background(), noteID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Downloaded)

	data, err := os.ReadFile(filepath.Join(dir, "clip_"+noteID+".mp4"))
	require.NoError(t, err)
	assert.Equal(t, "VIDEO", string(data))
}

func TestNotesWithSameTitleDoNotCollide(t *testing.T) {
	s := newStack(t)
	const first, second = "64a1b2c3d4e5f6a7b8c9d0a1", "64a1b2c3d4e5f6a7b8c9d0a2"
	s.backend.AddImageNote(xhs.NoteItem{NoteID: first},
		map[string][]byte{"https://ci/first": []byte("NOTE-A")}, []string{"https://ci/first"})
	s.backend.AddImageNote(xhs.NoteItem{NoteID: second},
		map[string][]byte{"https://ci/second": []byte("NOTE-B")}, []string{"https://ci/second"})

	dir := t.TempDir()
	store, err := storage.NewManager(dir, false)
	require.NoError(t, err)
	d := downloader.New(s.client, store, downloader.Options{Workers: 1}, logger.NewNopLogger())

	for _, id := range []string{first, second} {
		summary, err := d.Download(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Downloaded, id)
		assert.Equal(t, 0, summary.Skipped, id)
	}

	a, err := os.ReadFile(filepath.Join(dir, "image_"+first+"_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "NOTE-A", string(a))
	b, err := os.ReadFile(filepath.Join(dir, "image_"+second+"_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "NOTE-B", string(b))
}
