// Package lock provides per-place mutual exclusion for the booking
// ledger.  Every operation that reads the active booking set for a
// place and then decides to write must hold that place's lock, so two
// concurrent creates can never both observe "no conflict" and commit.
package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrBusy is returned when a lock cannot be acquired within the
// configured wait.  Callers are expected to surface it as a retryable
// failure rather than block indefinitely.
var ErrBusy = errors.New("resource busy")

// Keyed hands out one single-slot semaphore per key.  Semaphores are
// created lazily and kept for the life of the process; the key space is
// the set of place ids, which is small.
type Keyed struct {
	wait time.Duration
	mu   sync.Mutex
	sems map[uint64]chan struct{}
}

// NewKeyed returns a manager whose Acquire waits at most wait before
// giving up with ErrBusy.
func NewKeyed(wait time.Duration) *Keyed {
	return &Keyed{wait: wait, sems: make(map[uint64]chan struct{})}
}

func (k *Keyed) sem(id uint64) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.sems[id]
	if !ok {
		s = make(chan struct{}, 1)
		k.sems[id] = s
	}
	return s
}

// Acquire takes the lock for id, waiting up to the configured bound.
func (k *Keyed) Acquire(ctx context.Context, id uint64) error {
	s := k.sem(id)
	select {
	case s <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(k.wait)
	defer timer.Stop()
	select {
	case s <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the lock for id.  Releasing an unheld lock is a
// programming error and panics.
func (k *Keyed) Release(id uint64) {
	select {
	case <-k.sem(id):
	default:
		panic("lock: release of unheld lock")
	}
}

// AcquireAll takes the locks for every id in ascending order, the fixed
// order that keeps a zone-wide cascade from deadlocking against
// concurrent single-place operations.  On failure every lock taken so
// far is released.
func (k *Keyed) AcquireAll(ctx context.Context, ids []uint64) error {
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, id := range sorted {
		if err := k.Acquire(ctx, id); err != nil {
			for j := i - 1; j >= 0; j-- {
				k.Release(sorted[j])
			}
			return err
		}
	}
	return nil
}

// ReleaseAll frees every lock in ids.
func (k *Keyed) ReleaseAll(ids []uint64) {
	for _, id := range ids {
		k.Release(id)
	}
}
