package downloader

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xerrors "xhstoolbox/pkg/errors"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/storage"
	"xhstoolbox/pkg/xhs"
)

const testNoteID = "64f0c2a1000000001f03a1b2"

type fakeNoteAPI struct {
	mockSource
	note   *xhs.NoteItem
	videos []xhs.VideoURL
	images []string

	mu  sync.Mutex
	ids []string
}

func (f *fakeNoteAPI) NoteDetail(ctx context.Context, noteID string) (*xhs.NoteItem, error) {
	f.mu.Lock()
	f.ids = append(f.ids, noteID)
	f.mu.Unlock()
	return f.note, nil
}

func (f *fakeNoteAPI) VideoURLs(ctx context.Context, noteID string) ([]xhs.VideoURL, error) {
	return f.videos, nil
}

func (f *fakeNoteAPI) ImageURLs(ctx context.Context, noteID string) ([]string, error) {
	return f.images, nil
}

func newTestDownloader(t *testing.T, api NoteAPI, opts Options) (*Downloader, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewManager(dir, false)
	require.NoError(t, err)
	return New(api, store, opts, logger.NewNopLogger()), dir
}

func TestPlanImages(t *testing.T) {
	api := &fakeNoteAPI{
		note:   &xhs.NoteItem{NoteID: testNoteID, Title: "春天/穿搭", Type: xhs.NoteTypeNormal},
		images: []string{"https://img/a", "https://img/b"},
	}
	d, _ := newTestDownloader(t, api, Options{})

	note, jobs, err := d.Plan(context.Background(), "https://www.xiaohongshu.com/explore/"+testNoteID+"?xsec_token=abc")
	require.NoError(t, err)
	assert.Equal(t, testNoteID, note.NoteID)
	assert.Equal(t, []string{testNoteID}, api.ids)
	assert.Equal(t, []Job{
		{NoteID: testNoteID, URL: "https://img/a", FileName: "春天_穿搭_" + testNoteID + "_1.jpg", Index: 0},
		{NoteID: testNoteID, URL: "https://img/b", FileName: "春天_穿搭_" + testNoteID + "_2.jpg", Index: 1},
	}, jobs)
}

func TestPlanVideoUsesFirstRendition(t *testing.T) {
	api := &fakeNoteAPI{
		note: &xhs.NoteItem{NoteID: testNoteID, Type: xhs.NoteTypeVideo},
		videos: []xhs.VideoURL{
			{Quality: "1080p", URL: "https://v/1080"},
			{Quality: "720p", URL: "https://v/720"},
		},
	}
	d, _ := newTestDownloader(t, api, Options{})

	_, jobs, err := d.Plan(context.Background(), testNoteID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "https://v/1080", jobs[0].URL)
	assert.Equal(t, "video_"+testNoteID+".mp4", jobs[0].FileName)
}

func TestPlanErrors(t *testing.T) {
	d, _ := newTestDownloader(t, &fakeNoteAPI{}, Options{})

	_, _, err := d.Plan(context.Background(), "not a link")
	assert.True(t, xerrors.IsType(err, xerrors.ErrorTypeValidation))

	_, _, err = d.Plan(context.Background(), testNoteID)
	assert.True(t, xerrors.IsType(err, xerrors.ErrorTypeNotFound))
}

func TestDownloadWritesFilesAndMetadata(t *testing.T) {
	api := &fakeNoteAPI{
		note:   &xhs.NoteItem{NoteID: testNoteID, Title: "trip", Type: xhs.NoteTypeNormal},
		images: []string{"https://img/1", "https://img/2", "https://img/3"},
	}
	var mu sync.Mutex
	var progress []string
	planned := -1
	d, dir := newTestDownloader(t, api, Options{
		Workers:      2,
		SaveMetadata: true,
		Planned: func(note *xhs.NoteItem, files int) {
			planned = files
		},
		Progress: func(r Result) {
			mu.Lock()
			progress = append(progress, r.Job.FileName)
			mu.Unlock()
		},
	})

	summary, err := d.Download(context.Background(), testNoteID)
	require.NoError(t, err)
	assert.Equal(t, 3, planned)
	assert.Equal(t, 3, summary.Downloaded)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.Errors)

	names := []string{"trip_" + testNoteID + "_1.jpg", "trip_" + testNoteID + "_2.jpg", "trip_" + testNoteID + "_3.jpg"}
	for i, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, "data:"+api.images[i], string(content))
	}

	sort.Strings(progress)
	assert.Equal(t, names, progress)

	require.Equal(t, filepath.Join(dir, testNoteID+".json"), summary.MetadataPath)
	content, err := os.ReadFile(summary.MetadataPath)
	require.NoError(t, err)
	var saved xhs.NoteItem
	require.NoError(t, json.Unmarshal(content, &saved))
	assert.Equal(t, "trip", saved.Title)

	// A second run finds everything in place.
	again, err := d.Download(context.Background(), testNoteID)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Skipped)
	assert.Equal(t, 0, again.Downloaded)
}

func TestDownloadCountsFailures(t *testing.T) {
	api := &fakeNoteAPI{
		note:   &xhs.NoteItem{NoteID: testNoteID, Title: "x"},
		images: []string{"https://img/1", "https://img/2"},
	}
	api.err = xerrors.New(xerrors.ErrorTypeServerError, 502, "bad gateway")
	d, _ := newTestDownloader(t, api, Options{Workers: 1})

	summary, err := d.Download(context.Background(), testNoteID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, summary.Errors, 2)
}

func TestDownloadEmptyNote(t *testing.T) {
	api := &fakeNoteAPI{note: &xhs.NoteItem{NoteID: testNoteID, Type: xhs.NoteTypeVideo}}
	d, _ := newTestDownloader(t, api, Options{})

	summary, err := d.Download(context.Background(), testNoteID)
	require.NoError(t, err)
	assert.Zero(t, summary.Downloaded+summary.Skipped+summary.Failed)
}
