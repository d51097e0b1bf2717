package game

import (
	"context"
	"time"
)

// Loop runs Tick at a fixed rate on the calling goroutine. Console lines are
// executed between ticks on the same goroutine, so nothing the tick touches
// needs locking.
type Loop struct {
	Interval time.Duration
	// MaxFrame caps the dt handed to Tick after a stall.
	MaxFrame time.Duration
	Tick     func(dt float32)

	Lines <-chan string
	Exec  func(line string)
}

// Run blocks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	last := time.Now()
	lines := l.Lines
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if l.Exec != nil {
				l.Exec(line)
			}
		case now := <-ticker.C:
			l.Tick(FrameDelta(now.Sub(last), l.MaxFrame))
			last = now
		}
	}
}

// FrameDelta converts an elapsed duration to seconds, capped at limit when it
// is positive.
func FrameDelta(elapsed, limit time.Duration) float32 {
	if elapsed < 0 {
		elapsed = 0
	}
	if limit > 0 && elapsed > limit {
		elapsed = limit
	}
	return float32(elapsed.Seconds())
}
