package password

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many hash operations run at once. Callers wait for a slot
// until their context ends; the hash itself always runs to completion.
type Pool struct {
	hasher Hasher
	sem    *semaphore.Weighted
	size   int
}

// NewPool wraps h. size <= 0 selects runtime.NumCPU().
func NewPool(h Hasher, size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{
		hasher: h,
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
	}
}

// Size returns the number of concurrent hash slots.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)
	return p.hasher.Hash(password)
}

func (p *Pool) Verify(ctx context.Context, password, encoded string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)
	return p.hasher.Verify(password, encoded)
}

// NeedsUpgrade only parses the hash and does not take a slot.
func (p *Pool) NeedsUpgrade(encoded string) (bool, error) {
	return p.hasher.NeedsUpgrade(encoded)
}
