package lock

import (
	"context"
	"sync"
	"time"
)

// LocalGuard is an in-process Guard for single-replica deployments without
// redis. TTLs are ignored; locks live until released.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalGuard creates an in-process guard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: map[string]bool{}}
}

// Acquire implements Guard.
func (g *LocalGuard) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return nil, false, nil
	}
	g.held[key] = true
	release := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.held, key)
	}
	return release, true, nil
}
