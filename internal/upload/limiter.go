// Package upload bounds how many spreadsheets the service decodes and
// validates at once.
//
// A workbook is held fully in memory while it is decoded and checked, so
// parallel uploads are capped by a semaphore. When every slot is taken a new
// upload waits up to maxWait before failing with ErrTooManyUploads. During
// shutdown Close turns new uploads away with ErrShuttingDown and WaitForDrain
// blocks until in-flight validations finish.
package upload

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyUploads is returned when all upload slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

// ErrShuttingDown is returned by Acquire and Do once Close has been called.
var ErrShuttingDown = errors.New("server is shutting down")

// Defaults used when NewLimiter gets a non-positive value.
const (
	DefaultMaxConcurrent = 4
	DefaultMaxWait       = 30 * time.Second
)

// drainPollInterval is how often WaitForDrain checks for idle.
const drainPollInterval = 50 * time.Millisecond

// Limiter is a counting semaphore over upload processing.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	closing chan struct{}
	closed  atomic.Bool

	active   atomic.Int64
	served   atomic.Int64
	rejected atomic.Int64
}

// NewLimiter creates a limiter that allows at most maxConcurrent uploads.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		closing: make(chan struct{}),
	}
}

// Acquire waits for a slot. It returns ErrTooManyUploads when maxWait
// expires first, ErrShuttingDown after Close, or ctx's error when the caller
// gives up. Every successful Acquire must be paired with one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.closed.Load() {
		return ErrShuttingDown
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		l.served.Add(1)
		return nil
	case <-timer.C:
		l.rejected.Add(1)
		return ErrTooManyUploads
	case <-l.closing:
		return ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *Limiter) TryAcquire() bool {
	if l.closed.Load() {
		return false
	}
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		l.served.Add(1)
		return true
	default:
		l.rejected.Add(1)
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Close stops handing out slots. Uploads already holding one keep it until
// Release; waiters are woken with ErrShuttingDown. Close is idempotent.
func (l *Limiter) Close() {
	if l.closed.CompareAndSwap(false, true) {
		close(l.closing)
	}
}

// Closed reports whether Close has been called.
func (l *Limiter) Closed() bool { return l.closed.Load() }

// ActiveCount returns the number of uploads holding a slot.
func (l *Limiter) ActiveCount() int { return int(l.active.Load()) }

// MaxConcurrent returns the slot count.
func (l *Limiter) MaxConcurrent() int { return cap(l.slots) }

// Available returns the number of free slots.
func (l *Limiter) Available() int { return cap(l.slots) - len(l.slots) }

// WaitForDrain blocks until no upload holds a slot or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// Status is a point-in-time view of the limiter, served by /readyz.
type Status struct {
	Active        int   `json:"active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Served        int64 `json:"served"`
	Rejected      int64 `json:"rejected"`
}

// Status returns the current limiter state.
func (l *Limiter) Status() Status {
	return Status{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
		Served:        l.served.Load(),
		Rejected:      l.rejected.Load(),
	}
}
