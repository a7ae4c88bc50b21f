package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// DownloadTracker counts finished media files of a download
type DownloadTracker struct {
	mu        sync.Mutex
	total     int
	done      int
	skipped   int
	failed    int
	bytes     int64
	startTime time.Time
}

// NewDownloadTracker creates a tracker expecting total files
func NewDownloadTracker(total int) *DownloadTracker {
	return &DownloadTracker{total: total, startTime: time.Now()}
}

// Record counts one finished file
func (dt *DownloadTracker) Record(ok, skipped bool, size int64) {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	switch {
	case skipped:
		dt.skipped++
	case ok:
		dt.done++
		dt.bytes += size
	default:
		dt.failed++
	}
}

// Finished returns the number of files handled so far
func (dt *DownloadTracker) Finished() int {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	return dt.done + dt.skipped + dt.failed
}

// Bar renders the progress bar
func (dt *DownloadTracker) Bar() string {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	finished := dt.done + dt.skipped + dt.failed
	filled := barWidth
	if dt.total > 0 {
		filled = finished * barWidth / dt.total
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, finished, dt.total)
}

// Summary renders the final counters
func (dt *DownloadTracker) Summary() string {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	return fmt.Sprintf("%d downloaded, %d skipped, %d failed, %s in %s",
		dt.done, dt.skipped, dt.failed, FormatBytes(dt.bytes), time.Since(dt.startTime).Round(time.Millisecond))
}

// PrintProgress redraws the progress line
func (dt *DownloadTracker) PrintProgress() {
	Printf("\r%s %s", Green("[DOWNLOADING]"), dt.Bar())
}

// FormatBytes renders n with a binary unit
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
