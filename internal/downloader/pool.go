package downloader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/ratelimit"
	"xhstoolbox/pkg/retry"
)

// Job is one media file to fetch
type Job struct {
	NoteID   string
	URL      string
	FileName string
	Index    int
}

// Result is the outcome of a Job
type Result struct {
	Job      Job
	Success  bool
	Skipped  bool
	Error    error
	Duration time.Duration
	Size     int64
}

// MediaSource streams a media file
type MediaSource interface {
	DownloadMedia(ctx context.Context, mediaURL string) (io.ReadCloser, string, error)
}

// MediaStorage persists media files
type MediaStorage interface {
	IsDownloaded(name string) bool
	Save(r io.Reader, name string) (int64, error)
}

// WorkerPool downloads jobs on a fixed number of workers. Every download
// waits on the shared limiter first, so starts are spaced across workers.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	source      MediaSource
	storage     MediaStorage
	limiter     ratelimit.Limiter
	jobTimeout  time.Duration
	retry       retry.Policy
	logger      logger.Logger
}

// SetRetry sets how failed media fetches are retried. Must be called
// before Start.
func (wp *WorkerPool) SetRetry(p retry.Policy) {
	if p.Logger == nil {
		p.Logger = wp.logger
	}
	wp.retry = p
}

// NewWorkerPool creates a pool. A zero jobTimeout means no per-job limit.
func NewWorkerPool(
	numWorkers int,
	source MediaSource,
	storage MediaStorage,
	limiter ratelimit.Limiter,
	jobTimeout time.Duration,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if limiter == nil {
		limiter = ratelimit.NewSpacer(0)
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		source:      source,
		storage:     storage,
		limiter:     limiter,
		jobTimeout:  jobTimeout,
		logger:      logger.OrGlobal(log).WithField("component", "downloader"),
	}
}

// Start launches the workers. Cancelling ctx abandons queued jobs.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(ctx)

	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for the workers and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped")
}

// Submit queues a job
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel; it is closed by Stop
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// QueueSize returns the number of queued jobs
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		var result Result
		if err := wp.ctx.Err(); err != nil {
			result = Result{Job: job, Error: err}
		} else {
			result = wp.processJob(job, id)
		}

		// Stop drains results only after workers exit, so always deliver.
		wp.resultQueue <- result
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}
	fields := map[string]interface{}{
		"worker_id": workerID,
		"note_id":   job.NoteID,
		"file":      job.FileName,
	}

	if wp.storage.IsDownloaded(job.FileName) {
		wp.logger.DebugWithFields("File already downloaded", fields)
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	if err := wp.limiter.Wait(wp.ctx); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	ctx := wp.ctx
	if wp.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.jobTimeout)
		defer cancel()
	}

	body, err := retry.DoWithResult(ctx, wp.retry, func(ctx context.Context) (io.ReadCloser, error) {
		rc, _, err := wp.source.DownloadMedia(ctx, job.URL)
		return rc, err
	})
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)
		wp.logger.WithError(err).ErrorWithFields("Failed to download media", fields)
		return result
	}
	defer body.Close()

	size, err := wp.storage.Save(body, job.FileName)
	result.Size = size
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		wp.logger.WithError(err).ErrorWithFields("Failed to save media", fields)
		return result
	}

	result.Success = true
	fields["size"] = size
	fields["duration"] = result.Duration
	wp.logger.DebugWithFields("Downloaded media", fields)
	return result
}
