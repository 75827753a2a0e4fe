// internal/fetch/fetcher.go
package fetch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNetworkChanging marks a failure caused by an in-progress chain switch.
// These are expected noise, not real fetch failures.
var ErrNetworkChanging = errors.New("network is changing")

// IsNetworkChanging reports whether err is chain-switch noise.
func IsNetworkChanging(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNetworkChanging) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "network changed") ||
		strings.Contains(errStr, "underlying network changed")
}

// FetchFunc produces a fresh value for the fetcher.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Snapshot is what callers observe: the current value, whether a fetch is in
// flight, and the most recent error. After the first success the value is
// always the last known good one, even when Err is set.
type Snapshot[T any] struct {
	Value     T
	Loading   bool
	Err       error
	HasValue  bool
	UpdatedAt time.Time
}

// Fetcher caches the last successful result of a FetchFunc and degrades to it
// on failure. One fetch per instance is outstanding at a time, and every
// fetch is generation-stamped so a late response from before a Rekey cannot
// overwrite newer state.
type Fetcher[T any] struct {
	name         string
	logger       *zap.Logger
	defaultValue T

	mu         sync.Mutex
	fetchFn    FetchFunc[T]
	enabled    bool
	inFlight   bool
	generation uint64
	hasValue   bool
	value      T
	err        error
	updatedAt  time.Time
}

// New creates an enabled fetcher seeded with defaultValue.
func New[T any](name string, defaultValue T, fn FetchFunc[T], logger *zap.Logger) *Fetcher[T] {
	return &Fetcher[T]{
		name:         name,
		logger:       logger.Named(name),
		defaultValue: defaultValue,
		fetchFn:      fn,
		value:        defaultValue,
		enabled:      true,
	}
}

// SetEnabled gates fetching. A disabled fetcher serves its current snapshot.
func (f *Fetcher[T]) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

// Rekey swaps the fetch function when the identity keys change (address,
// chain, token). The cache resets: the old entity's value must not bleed into
// the new one, and any in-flight result for the old keys is dropped.
func (f *Fetcher[T]) Rekey(fn FetchFunc[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchFn = fn
	f.generation++
	f.value = f.defaultValue
	f.hasValue = false
	f.err = nil
	f.updatedAt = time.Time{}
}

// Fetch runs the fetch function and folds the outcome into the cache:
//   - success replaces the value and clears the error
//   - chain-switch noise is logged and ignored entirely
//   - failure after a prior success keeps the stale value, annotated with err
//   - failure with no prior success serves the zero-value default
//
// A fetch already in flight suppresses this one; the current snapshot is
// returned unchanged.
func (f *Fetcher[T]) Fetch(ctx context.Context) Snapshot[T] {
	f.mu.Lock()
	if !f.enabled || f.inFlight {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap
	}
	f.inFlight = true
	gen := f.generation
	fn := f.fetchFn
	f.mu.Unlock()

	value, err := fn(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false

	if gen != f.generation {
		f.logger.Debug("Dropping result from a superseded fetch",
			zap.Uint64("fetched_generation", gen),
			zap.Uint64("current_generation", f.generation))
		return f.snapshotLocked()
	}

	switch {
	case err == nil:
		f.value = value
		f.hasValue = true
		f.err = nil
		f.updatedAt = time.Now()
	case IsNetworkChanging(err):
		f.logger.Debug("Ignoring chain-switch noise", zap.Error(err))
	case f.hasValue:
		f.logger.Warn("Fetch failed, serving last known good value",
			zap.Error(err), zap.Time("cached_at", f.updatedAt))
		f.err = err
	default:
		f.logger.Warn("Initial fetch failed, serving default", zap.Error(err))
		f.value = f.defaultValue
		f.err = err
	}

	return f.snapshotLocked()
}

// Refetch is the imperative refresh entry point, e.g. after a confirmed
// transaction.
func (f *Fetcher[T]) Refetch(ctx context.Context) Snapshot[T] {
	return f.Fetch(ctx)
}

// Snapshot returns the current state without fetching.
func (f *Fetcher[T]) Snapshot() Snapshot[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Fetcher[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Value:     f.value,
		Loading:   f.inFlight,
		Err:       f.err,
		HasValue:  f.hasValue,
		UpdatedAt: f.updatedAt,
	}
}
