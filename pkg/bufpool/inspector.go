package bufpool

import (
	"context"
	"time"

	"github.com/marmos91/iobufs/internal/logger"
)

// Start launches the background inspector. Every sweep interval it runs
// Sweep (when idle eviction is enabled) and then Report. The interval is
// re-read after each run, so SetSweepInterval applies from the next wait.
//
// The inspector stops when Stop is called or ctx is cancelled. Calling Start
// while the inspector is running does nothing.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	logger.Info("Buffer pool inspector started",
		logger.PoolID(p.id),
		logger.Interval(p.SweepInterval()),
		logger.KeyIdleEviction, p.IdleEviction(),
		logger.KeyIdle, p.IdleThreshold(),
	)

	p.wg.Add(1)
	go p.run(ctx)
}

// Stop cancels the inspector and waits for it to exit. It is safe to call
// more than once and without a prior Start.
func (p *Pool) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()

	logger.Info("Buffer pool inspector stopped", logger.PoolID(p.id))
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()

	timer := time.NewTimer(p.SweepInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			p.inspect()
			timer.Reset(p.SweepInterval())
		}
	}
}

func (p *Pool) inspect() {
	if p.IdleEviction() {
		p.Sweep()
	}
	p.Report()
}
