// internal/progress/reporter.go
package progress

import (
	"sync"
	"time"

	"github.com/bstardust/photo-meta/internal/logger"
)

// Reporter tracks and reports how far a batch metadata scan has got
type Reporter struct {
	mu             sync.Mutex
	total          int
	located        int
	unlocated      int
	errors         int
	startTime      time.Time
	lastUpdateTime time.Time
	updateInterval time.Duration
	now            func() time.Time
}

// Summary is a snapshot of the counters
type Summary struct {
	Total     int
	Located   int
	Unlocated int
	Errors    int
}

// New creates a new progress reporter
func New() *Reporter {
	return &Reporter{
		updateInterval: 2 * time.Second,
		now:            time.Now,
	}
}

// Start initializes the progress reporter with the total number of files
func (r *Reporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = total
	r.located = 0
	r.unlocated = 0
	r.errors = 0
	r.startTime = r.now()
	r.lastUpdateTime = r.startTime

	logger.Debug("Reading metadata of %d files", total)
}

// Done records a file whose metadata was read
func (r *Reporter) Done(path string, hasLocation bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hasLocation {
		r.located++
	} else {
		r.unlocated++
	}
	r.updateProgress()
}

// Error records a file that could not be read
func (r *Reporter) Error(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors++
	logger.Warn("Failed to read %s: %v", path, err)
	r.updateProgress()
}

// Finish logs the final counters and returns them
func (r *Reporter) Finish() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	duration := r.now().Sub(r.startTime)

	logger.Info("Read %d/%d files: %d with location, %d without, %d errors in %s",
		r.located+r.unlocated, r.total, r.located, r.unlocated, r.errors, duration.Round(time.Millisecond))

	return Summary{Total: r.total, Located: r.located, Unlocated: r.unlocated, Errors: r.errors}
}

// updateProgress logs progress at most once per update interval
func (r *Reporter) updateProgress() {
	now := r.now()
	if now.Sub(r.lastUpdateTime) < r.updateInterval {
		return
	}

	r.lastUpdateTime = now
	duration := now.Sub(r.startTime)
	processed := r.located + r.unlocated + r.errors

	if processed == 0 || r.total == 0 {
		return
	}

	percentage := float64(processed) / float64(r.total) * 100

	var eta string
	if processed < r.total {
		perFile := duration / time.Duration(processed)
		eta = (perFile * time.Duration(r.total-processed)).Round(time.Second).String()
	} else {
		eta = "0s"
	}

	logger.Info("Progress: %.1f%% (%d/%d, %d with location, %d errors) ETA: %s",
		percentage, processed, r.total, r.located, r.errors, eta)
}
