// Package progress draws a single-line progress bar for batch runs.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 40

// Bar counts passed and failed cases and redraws itself on every update.
// It is safe for concurrent use.
type Bar struct {
	mu        sync.Mutex
	writer    io.Writer
	total     int
	passed    int
	failed    int
	startTime time.Time
	now       func() time.Time
}

// NewBar creates a bar for total cases that draws to w.
func NewBar(w io.Writer, total int) *Bar {
	return &Bar{
		writer:    w,
		total:     total,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Add records one finished case.
func (b *Bar) Add(passed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if passed {
		b.passed++
	} else {
		b.failed++
	}
	b.render()
}

func (b *Bar) render() {
	done := b.passed + b.failed
	ratio := 1.0
	if b.total > 0 {
		ratio = float64(done) / float64(b.total)
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(float64(barWidth) * ratio)

	fmt.Fprintf(b.writer, "\r[%s%s] %3.0f%% | %d/%d | ✓ %d | ✗ %d | %s",
		strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled),
		ratio*100,
		done,
		b.total,
		b.passed,
		b.failed,
		formatDuration(b.now().Sub(b.startTime)),
	)
}

// Finish ends the bar line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	fmt.Fprintln(b.writer)
}

// formatDuration renders d as 1h2m3s, 2m3s or 3s.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
