package syncutil

import "context"

// ContextMutex is a single-holder lock whose acquisition can be abandoned
// when the caller's context ends. The zero value is not usable; call
// NewContextMutex.
type ContextMutex struct {
	ch chan struct{}
}

// NewContextMutex returns an unlocked ContextMutex.
func NewContextMutex() *ContextMutex {
	m := &ContextMutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

// Lock waits for the lock or for ctx to finish. On success the caller must
// invoke the returned func exactly once.
func (m *ContextMutex) Lock(ctx context.Context) (func(), error) {
	// Fail fast on a dead context even when the lock is free.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-m.ch:
		return func() { m.ch <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
