package service

import (
	"context"
	"sync"
	"time"

	"feedhub/internal/observability"
)

// cleanupTimeout bounds a detached side effect such as removing an image artifact.
const cleanupTimeout = 30 * time.Second

// background runs side effects that must not fail or delay the request that started them.
type background struct {
	wg sync.WaitGroup
}

// Go runs fn on its own goroutine with a context that survives the request but not the timeout.
// Failures are logged and swallowed.
func (b *background) Go(ctx context.Context, operation string, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(detached, cleanupTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			observability.LogAsyncError(ctx, operation, err)
		}
	}()
}

// Wait blocks until every started side effect has finished.
func (b *background) Wait() {
	b.wg.Wait()
}
