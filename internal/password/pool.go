package password

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrPoolStopped is returned when work is submitted to a pool that is not running.
var ErrPoolStopped = errors.New("hash pool is not running")

// PoolConfig tunes a Pool.
type PoolConfig struct {
	MaxConcurrent int
	Logger        logrus.FieldLogger
}

// Pool runs bcrypt work on a bounded number of goroutines so that a burst of
// logins cannot occupy every CPU at once.
type Pool struct {
	cfg    PoolConfig
	hasher *Hasher

	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPool(hasher *Hasher, cfg PoolConfig) *Pool {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Pool{
		cfg:    cfg,
		hasher: hasher,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}
}

func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil && p.ctx.Err() == nil {
		return nil
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.cfg.Logger.Infof("hash pool started, workers: %d", p.cfg.MaxConcurrent)
	return nil
}

// Shutdown stops accepting work and waits for in-flight hashes to finish.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.cfg.Logger.Info("hash pool stopped")
}

// Hash hashes plaintext on a pool worker.
func (p *Pool) Hash(ctx context.Context, plaintext string) (string, error) {
	type result struct {
		hash string
		err  error
	}
	var res result
	err := p.run(ctx, func() {
		res.hash, res.err = p.hasher.Hash(plaintext)
	})
	if err != nil {
		return "", err
	}
	return res.hash, res.err
}

// Compare verifies plaintext against hash on a pool worker. Any pool
// failure is reported as a mismatch together with the error.
func (p *Pool) Compare(ctx context.Context, plaintext, hash string) (bool, error) {
	var ok bool
	if err := p.run(ctx, func() {
		ok = p.hasher.Compare(plaintext, hash)
	}); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *Pool) run(ctx context.Context, work func()) error {
	p.mu.RLock()
	poolCtx := p.ctx
	if poolCtx == nil || poolCtx.Err() != nil {
		p.mu.RUnlock()
		return ErrPoolStopped
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	done := make(chan bool, 1)
	go func() {
		defer p.wg.Done()
		select {
		case <-poolCtx.Done():
			done <- false
		case <-ctx.Done():
			done <- false
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			work()
			done <- true
		}
	}()

	if <-done {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrPoolStopped
}
