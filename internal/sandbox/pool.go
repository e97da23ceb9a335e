package sandbox

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Pool bounds concurrent evaluations to a fixed number of runtimes. Every
// runtime is reset to a brand-new VM before it goes back into the pool, so
// no script ever observes state left by another.
type Pool struct {
	config    Config
	sandboxes chan *Runtime
	size      int
	mu        sync.RWMutex
	closed    bool

	runs     atomic.Int64
	failures atomic.Int64
	timeouts atomic.Int64
}

// PoolStats reports pool occupancy and counters
type PoolStats struct {
	Size      int   `json:"size"`
	Available int   `json:"available"`
	InUse     int   `json:"in_use"`
	Closed    bool  `json:"closed"`
	Runs      int64 `json:"runs"`
	Failures  int64 `json:"failures"`
	Timeouts  int64 `json:"timeouts"`
}

// NewPool creates a sandbox pool of config.PoolSize runtimes
func NewPool(config Config) (*Pool, error) {
	config = config.withDefaults()

	pool := &Pool{
		config:    config,
		sandboxes: make(chan *Runtime, config.PoolSize),
		size:      config.PoolSize,
	}

	for i := 0; i < config.PoolSize; i++ {
		sandbox, err := New(config)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.sandboxes <- sandbox
	}

	return pool, nil
}

// Acquire gets a runtime from the pool, waiting at most QueueTimeout
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}

	wait := time.NewTimer(p.config.QueueTimeout)
	defer wait.Stop()

	select {
	case sandbox, ok := <-p.sandboxes:
		if !ok {
			return nil, ErrPoolClosed
		}
		return sandbox, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wait.C:
		return nil, ErrQueueTimeout
	}
}

// Release resets the runtime and returns it to the pool
func (p *Pool) Release(sandbox *Runtime) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return sandbox.Close()
	}

	if err := sandbox.Reset(); err != nil {
		sandbox.Close()
		fresh, newErr := New(p.config)
		if newErr != nil {
			// Slot is lost; the pool shrinks rather than hand out a dirty VM.
			return newErr
		}
		sandbox = fresh
	}

	select {
	case p.sandboxes <- sandbox:
		return nil
	default:
		return sandbox.Close()
	}
}

// Run evaluates code on a pooled runtime. The error is non-nil only when no
// runtime could be obtained; script failures are reported in the Result.
func (p *Pool) Run(ctx context.Context, code string) (*Result, error) {
	sandbox, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(sandbox)

	result := sandbox.Run(ctx, code)

	p.runs.Add(1)
	if result.Failure != nil {
		p.failures.Add(1)
		if result.Failure.Kind == KindTimeout {
			p.timeouts.Add(1)
		}
	}
	return result, nil
}

// Close closes pool and all runtimes. Runtimes still checked out are closed
// when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.sandboxes)

	for sandbox := range p.sandboxes {
		sandbox.Close()
	}

	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	available := len(p.sandboxes)
	return PoolStats{
		Size:      p.size,
		Available: available,
		InUse:     p.size - available,
		Closed:    p.closed,
		Runs:      p.runs.Load(),
		Failures:  p.failures.Load(),
		Timeouts:  p.timeouts.Load(),
	}
}
