// api/anomaly/tracker.go
package anomaly

import (
	"context"
	"sync"
	"time"
)

// DownloadTracker accumulates per-subject downloaded bytes over a
// rolling window, entirely in memory. The window resets lazily on the
// next Add after it elapses; a background sweeper drops idle buckets so
// low-traffic subjects do not pin memory (and do not keep a stale
// window alive far past its nominal duration).
//
// For multi-instance deployments use the redis-backed counter instead,
// so thresholds apply to global rather than per-instance activity.
type DownloadTracker struct {
	mu      sync.Mutex
	window  time.Duration
	buckets map[string]*byteWindow
	nowFn   func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type byteWindow struct {
	total int64
	start time.Time
}

// NewDownloadTracker creates a tracker with the given rolling window
// and starts its sweeper.
func NewDownloadTracker(window time.Duration) *DownloadTracker {
	t := &DownloadTracker{
		window:  window,
		buckets: make(map[string]*byteWindow),
		nowFn:   time.Now,
		stop:    make(chan struct{}),
	}
	go t.sweep()
	return t
}

// Add records n downloaded bytes for the subject and returns the
// running total for the current window. The error return satisfies
// ByteCounter; the in-memory tracker cannot fail.
func (t *DownloadTracker) Add(_ context.Context, subjectID string, n int64) (int64, error) {
	now := t.nowFn()

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[subjectID]
	if !ok || now.Sub(b.start) >= t.window {
		b = &byteWindow{start: now}
		t.buckets[subjectID] = b
	}
	b.total += n
	return b.total, nil
}

// Total returns the subject's byte count for the current window, zero
// if the window has elapsed.
func (t *DownloadTracker) Total(subjectID string) int64 {
	now := t.nowFn()

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[subjectID]
	if !ok || now.Sub(b.start) >= t.window {
		return 0
	}
	return b.total
}

// Stop terminates the sweeper.
func (t *DownloadTracker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func (t *DownloadTracker) sweep() {
	interval := t.window / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := t.nowFn()
			t.mu.Lock()
			for id, b := range t.buckets {
				if now.Sub(b.start) >= t.window {
					delete(t.buckets, id)
				}
			}
			t.mu.Unlock()
		case <-t.stop:
			return
		}
	}
}
