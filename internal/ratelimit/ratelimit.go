package ratelimit

import (
	"sync"
	"time"
)

// Limiter answers whether a caller identified by key may proceed.
type Limiter interface {
	Allow(key string) bool
}

type window struct {
	count int
	start time.Time
}

// FixedWindow counts attempts per key inside a fixed interval. Stale
// windows are pruned on rollover so the map does not grow unbounded.
type FixedWindow struct {
	max      int
	interval time.Duration

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func New(max int, interval time.Duration) *FixedWindow {
	return &FixedWindow{
		max:      max,
		interval: interval,
		windows:  make(map[string]*window),
		now:      time.Now,
	}
}

func (f *FixedWindow) Allow(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	w := f.windows[key]
	if w == nil || now.Sub(w.start) > f.interval {
		if f.max <= 0 {
			return false
		}
		f.prune(now)
		f.windows[key] = &window{count: 1, start: now}
		return true
	}
	if w.count >= f.max {
		return false
	}
	w.count++
	return true
}

func (f *FixedWindow) prune(now time.Time) {
	for key, w := range f.windows {
		if now.Sub(w.start) > f.interval {
			delete(f.windows, key)
		}
	}
}
