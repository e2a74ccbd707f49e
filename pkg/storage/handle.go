package storage

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ConnectFunc establishes a connection to a backend. It is expected to bound
// itself with the backend's connect timeout.
type ConnectFunc[T any] func(ctx context.Context) (T, error)

// Handle is a lazily initialized, process-scoped connection. The first Get
// connects; later calls reuse the connection. A failed attempt leaves the handle
// empty so the next request tries again.
//
// Concurrent callers share a single in-flight attempt, so while the backend is
// unreachable no caller waits longer than one connect.
type Handle[T any] struct {
	mu      sync.Mutex
	connect ConnectFunc[T]
	conn    T
	ready   bool

	attempts singleflight.Group
}

// NewHandle creates a handle that connects with fn on first use
func NewHandle[T any](fn ConnectFunc[T]) *Handle[T] {
	return &Handle[T]{connect: fn}
}

// NewReadyHandle creates a handle around an already established connection
func NewReadyHandle[T any](conn T) *Handle[T] {
	return &Handle[T]{conn: conn, ready: true}
}

// Get returns the connection, connecting first if needed.
// Connection failures are wrapped with ErrUnavailable.
func (h *Handle[T]) Get(ctx context.Context) (T, error) {
	if conn, ok := h.current(); ok {
		return conn, nil
	}

	var zero T
	if h.connect == nil {
		return zero, fmt.Errorf("%w: no connector configured", ErrUnavailable)
	}

	// The attempt outlives a caller that gives up; the others may still be
	// waiting on it.
	connectCtx := context.WithoutCancel(ctx)
	result := h.attempts.DoChan("connect", func() (interface{}, error) {
		if conn, ok := h.current(); ok {
			return conn, nil
		}
		conn, err := h.connect(connectCtx)
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		h.conn = conn
		h.ready = true
		h.mu.Unlock()
		return conn, nil
	})

	select {
	case res := <-result:
		if res.Err != nil {
			return zero, fmt.Errorf("%w: %v", ErrUnavailable, res.Err)
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func (h *Handle[T]) current() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn, h.ready
}

// Ready reports whether a connection is currently held
func (h *Handle[T]) Ready() bool {
	_, ready := h.current()
	return ready
}

// Reset drops the held connection after closing it with closeFn, so the next
// Get reconnects.
func (h *Handle[T]) Reset(closeFn func(T) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ready {
		return nil
	}

	var err error
	if closeFn != nil {
		err = closeFn(h.conn)
	}

	var zero T
	h.conn = zero
	h.ready = false
	return err
}
