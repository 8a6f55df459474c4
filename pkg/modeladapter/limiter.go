package modeladapter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of concurrent in-flight requests issued through a
// ModelAdapter. A Limiter created with a non-positive bound, and the nil
// *Limiter, impose no bound.
type Limiter struct {
	sem      *semaphore.Weighted
	max      int
	inFlight atomic.Int64
}

// NewLimiter creates a Limiter allowing at most maxConcurrent requests at once.
// maxConcurrent <= 0 means unlimited.
func NewLimiter(maxConcurrent int) *Limiter {
	l := &Limiter{}
	if maxConcurrent > 0 {
		l.sem = semaphore.NewWeighted(int64(maxConcurrent))
		l.max = maxConcurrent
	}
	return l
}

// Acquire blocks until a slot is available or ctx is done. The returned
// release func must be called exactly once when the request finishes.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l == nil {
		return func() {}, nil
	}

	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	l.inFlight.Add(1)

	var once atomic.Bool
	return func() {
		if !once.CompareAndSwap(false, true) {
			return
		}
		l.inFlight.Add(-1)
		if l.sem != nil {
			l.sem.Release(1)
		}
	}, nil
}

// Max returns the configured bound, or 0 when unlimited.
func (l *Limiter) Max() int {
	if l == nil {
		return 0
	}
	return l.max
}

// Unlimited reports whether the limiter imposes no bound.
func (l *Limiter) Unlimited() bool { return l.Max() == 0 }

// InFlight returns the number of currently held slots.
func (l *Limiter) InFlight() int {
	if l == nil {
		return 0
	}
	return int(l.inFlight.Load())
}
