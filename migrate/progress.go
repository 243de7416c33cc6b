package migrate

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker tracks and reports progress of a table migration.
type ProgressTracker struct {
	writer         io.Writer
	label          string
	total          int
	current        int
	resumedFrom    int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// label: table name shown in every report line
// total: total number of records to process
// reportInterval: report progress every N records
func NewProgressTracker(writer io.Writer, label string, total, reportInterval int) *ProgressTracker {
	return &ProgressTracker{
		writer:         writer,
		label:          label,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress from an initial offset. A resumed run
// passes the number of records already accounted for so rate and ETA
// reflect only the work done in this run.
func (p *ProgressTracker) Start(initial int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if initial < 0 {
		initial = 0
	}
	if initial > p.total {
		initial = p.total
	}

	p.startTime = time.Now()
	p.started = true
	p.current = initial
	p.resumedFrom = initial
	p.lastReported = initial
}

// Increment increases the current progress by the specified amount.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current += delta
	if p.current > p.total {
		p.current = p.total
	}

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish marks the table as complete and prints final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	done := p.current - p.resumedFrom

	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(done) / elapsed.Seconds()
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	eta := "?"
	if rate > 0 {
		remaining := time.Duration(float64(p.total-p.current)/rate) * time.Second
		eta = remaining.Round(time.Second).String()
	}

	fmt.Fprintf(p.writer, "\r%s: %d/%d (%.1f%%) - %.1f records/s - ETA %s",
		p.label, p.current, p.total, percentage, rate, eta)
}
