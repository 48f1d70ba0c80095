package generation

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"textvision/internal/infra"
	"textvision/internal/infra/lease"
	"textvision/internal/infra/metrics"
)

// Dispatcher runs one goroutine per job under a shared concurrency bound.
// Its base context is canceled on shutdown; Wait blocks until every started
// task has returned.
type Dispatcher struct {
	base     context.Context
	sem      *semaphore.Weighted
	locker   lease.Locker
	leaseTTL time.Duration
	wg       sync.WaitGroup
	logger   infra.Logger
}

// NewDispatcher builds a dispatcher. A nil locker disables leasing.
func NewDispatcher(base context.Context, concurrency int, locker lease.Locker, leaseTTL time.Duration, logger infra.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	if leaseTTL <= 0 {
		leaseTTL = 15 * time.Minute
	}
	return &Dispatcher{
		base:     base,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		locker:   locker,
		leaseTTL: leaseTTL,
		logger:   logger,
	}
}

// Go starts task for key without blocking on the concurrency bound. The task
// always runs, with a canceled context if shutdown began before a slot was
// free, so it can record its own cancellation. The lease is taken before Go
// returns; when it is held elsewhere the task still runs and the store's
// processing guard keeps the first terminal write.
func (d *Dispatcher) Go(key string, task func(ctx context.Context)) {
	token, err := d.lock(d.base, key)
	switch {
	case errors.Is(err, lease.ErrHeld):
		d.logger.Warn().Str("job_id", key).Msg("dispatch lease held elsewhere; running unleased")
	case err != nil:
		d.logger.Warn().Err(err).Str("job_id", key).Msg("dispatch lease unavailable; continuing without it")
	}
	d.spawn(key, token, task)
}

// TryGo starts task only if the lease for key can be taken. It reports false
// when another holder owns the key; that holder is responsible for the job.
func (d *Dispatcher) TryGo(ctx context.Context, key string, task func(ctx context.Context)) (bool, error) {
	token, err := d.lock(ctx, key)
	switch {
	case errors.Is(err, lease.ErrHeld):
		return false, nil
	case err != nil:
		return false, err
	}
	d.spawn(key, token, task)
	return true, nil
}

func (d *Dispatcher) lock(ctx context.Context, key string) (string, error) {
	if d.locker == nil {
		return "", nil
	}
	return d.locker.TryLock(ctx, leaseKey(key), d.leaseTTL)
}

func (d *Dispatcher) spawn(key, token string, task func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if token != "" {
			defer d.unlock(key, token)
		}
		ctx := d.base

		if err := d.sem.Acquire(ctx, 1); err != nil {
			task(ctx)
			return
		}
		defer d.sem.Release(1)
		metrics.DispatchStarted()
		defer metrics.DispatchDone()

		task(ctx)
	}()
}

func (d *Dispatcher) unlock(key, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.base), 5*time.Second)
	defer cancel()
	if err := d.locker.Unlock(ctx, leaseKey(key), token); err != nil {
		d.logger.Warn().Err(err).Str("job_id", key).Msg("release dispatch lease")
	}
}

func leaseKey(key string) string { return "dispatch:" + key }

// Wait blocks until all started tasks have returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitContext is Wait bounded by ctx.
func (d *Dispatcher) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
