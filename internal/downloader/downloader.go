package downloader

import (
	"context"
	"fmt"
	"time"

	"xhstoolbox/pkg/errors"
	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/ratelimit"
	"xhstoolbox/pkg/retry"
	"xhstoolbox/pkg/storage"
	"xhstoolbox/pkg/xhs"
)

// NoteAPI is the part of the backend client a download needs
type NoteAPI interface {
	MediaSource
	NoteDetail(ctx context.Context, noteID string) (*xhs.NoteItem, error)
	VideoURLs(ctx context.Context, noteID string) ([]xhs.VideoURL, error)
	ImageURLs(ctx context.Context, noteID string) ([]string, error)
}

// Options configures a Downloader
type Options struct {
	Workers    int
	Stagger    time.Duration
	JobTimeout time.Duration
	// Retries is the number of extra attempts for a failed media fetch
	Retries int
	// RetryBackoff defaults to retry.DefaultExponentialBackoff
	RetryBackoff retry.BackoffStrategy
	SaveMetadata bool
	// Planned is called once the media list is known
	Planned func(note *xhs.NoteItem, files int)
	// Progress is called after every finished job
	Progress func(Result)
}

// Summary describes a finished note download
type Summary struct {
	Note         *xhs.NoteItem
	Downloaded   int
	Skipped      int
	Failed       int
	Bytes        int64
	Errors       []error
	MetadataPath string
}

// Downloader saves all media of a note
type Downloader struct {
	api     NoteAPI
	storage *storage.Manager
	opts    Options
	logger  logger.Logger
}

// New creates a Downloader writing through store
func New(api NoteAPI, store *storage.Manager, opts Options, log logger.Logger) *Downloader {
	return &Downloader{
		api:     api,
		storage: store,
		opts:    opts,
		logger:  logger.OrGlobal(log).WithField("component", "downloader"),
	}
}

// Plan resolves input (a note id or share link) to the note and its jobs
func (d *Downloader) Plan(ctx context.Context, input string) (*xhs.NoteItem, []Job, error) {
	noteID, ok := xhs.ExtractNoteID(input)
	if !ok {
		return nil, nil, errors.New(errors.ErrorTypeValidation, 0, "no note id found in %q", input)
	}

	note, err := d.api.NoteDetail(ctx, noteID)
	if err != nil {
		return nil, nil, err
	}
	if note == nil {
		return nil, nil, errors.New(errors.ErrorTypeNotFound, 0, "note %s not found", noteID)
	}
	if note.NoteID == "" {
		note.NoteID = noteID
	}

	if note.IsVideo() {
		urls, err := d.api.VideoURLs(ctx, noteID)
		if err != nil {
			return note, nil, err
		}
		if len(urls) == 0 {
			return note, nil, nil
		}
		return note, []Job{{
			NoteID:   note.NoteID,
			URL:      urls[0].URL,
			FileName: mediaStem(note, "video") + ".mp4",
		}}, nil
	}

	urls, err := d.api.ImageURLs(ctx, noteID)
	if err != nil {
		return note, nil, err
	}
	stem := mediaStem(note, "image")
	jobs := make([]Job, 0, len(urls))
	for i, u := range urls {
		jobs = append(jobs, Job{
			NoteID:   note.NoteID,
			URL:      u,
			FileName: fmt.Sprintf("%s_%d.jpg", stem, i+1),
			Index:    i,
		})
	}
	return note, jobs, nil
}

// mediaStem names a note's files after its title and id. Titles repeat
// across notes and untitled notes all share the fallback.
func mediaStem(note *xhs.NoteItem, fallback string) string {
	return storage.SanitizeFileName(note.Title, fallback) + "_" + storage.SanitizeFileName(note.NoteID, "note")
}

// Download plans and runs the download of one note
func (d *Downloader) Download(ctx context.Context, input string) (*Summary, error) {
	note, jobs, err := d.Plan(ctx, input)
	if err != nil {
		return nil, err
	}

	if d.opts.Planned != nil {
		d.opts.Planned(note, len(jobs))
	}

	summary := &Summary{Note: note}
	if len(jobs) == 0 {
		d.logger.WarnWithFields("Note has no downloadable media", map[string]interface{}{
			"note_id": note.NoteID,
		})
	}

	if d.opts.SaveMetadata {
		path, err := d.storage.SaveMetadata(note.NoteID, note)
		if err != nil {
			summary.Errors = append(summary.Errors, err)
		}
		summary.MetadataPath = path
	}

	d.run(ctx, jobs, summary)

	d.logger.InfoWithFields("Note download finished", map[string]interface{}{
		"note_id":    note.NoteID,
		"downloaded": summary.Downloaded,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
		"bytes":      summary.Bytes,
	})
	return summary, nil
}

func (d *Downloader) run(ctx context.Context, jobs []Job, summary *Summary) {
	pool := NewWorkerPool(d.opts.Workers, d.api, d.storage, ratelimit.NewSpacer(d.opts.Stagger), d.opts.JobTimeout, d.logger)
	pool.SetRetry(retry.Policy{
		MaxAttempts: d.opts.Retries + 1,
		Backoff:     d.opts.RetryBackoff,
	})
	pool.Start(ctx)

	go func() {
		defer pool.Stop()
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				d.logger.WithError(err).Warn("Stopped submitting jobs")
				return
			}
		}
	}()

	for result := range pool.Results() {
		switch {
		case result.Skipped:
			summary.Skipped++
		case result.Success:
			summary.Downloaded++
			summary.Bytes += result.Size
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Errorf("%s: %w", result.Job.FileName, result.Error))
		}
		if d.opts.Progress != nil {
			d.opts.Progress(result)
		}
	}

	// Jobs never submitted count as failed.
	if missing := len(jobs) - summary.Downloaded - summary.Skipped - summary.Failed; missing > 0 {
		summary.Failed += missing
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, err)
		}
	}
}
