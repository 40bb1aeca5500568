package bufpool

import (
	"time"

	"github.com/marmos91/iobufs/internal/logger"
)

// storeTunables normalizes t and stores every field.
func (p *Pool) storeTunables(t Tunables) {
	p.SetDirectBudgetKB(t.DirectBudgetKB)
	p.SetIdleEviction(t.IdleEviction)
	p.SetSweepInterval(t.SweepInterval)
	p.SetIdleThreshold(t.IdleThreshold)
}

// ApplyTunables replaces all runtime settings. A new sweep interval takes
// effect after the inspector's current wait.
func (p *Pool) ApplyTunables(t Tunables) {
	p.storeTunables(t)
	applied := p.Tunables()
	logger.Info("Buffer pool tunables updated",
		logger.PoolID(p.id),
		logger.BudgetKB(applied.DirectBudgetKB),
		logger.KeyIdleEviction, applied.IdleEviction,
		logger.Interval(applied.SweepInterval),
		logger.KeyIdle, applied.IdleThreshold,
	)
}

// Tunables returns the current runtime settings.
func (p *Pool) Tunables() Tunables {
	return Tunables{
		DirectBudgetKB: p.DirectBudgetKB(),
		IdleEviction:   p.IdleEviction(),
		SweepInterval:  p.SweepInterval(),
		IdleThreshold:  p.IdleThreshold(),
	}
}

// DirectBudgetKB returns the direct memory budget in KiB; 0 means unlimited.
func (p *Pool) DirectBudgetKB() int64 { return p.directBudgetKB.Load() }

// SetDirectBudgetKB sets the direct memory budget. Negative values disable it.
// Lowering the budget does not undo a downgrade and raising it does not
// restore one.
func (p *Pool) SetDirectBudgetKB(kb int64) {
	if kb < 0 {
		kb = 0
	}
	p.directBudgetKB.Store(kb)
}

func (p *Pool) IdleEviction() bool { return p.idleEviction.Load() }

func (p *Pool) SetIdleEviction(enabled bool) { p.idleEviction.Store(enabled) }

func (p *Pool) SweepInterval() time.Duration {
	return time.Duration(p.sweepInterval.Load())
}

// SetSweepInterval sets the inspector period. Zero selects the default and
// anything below the 10 second floor is raised to it.
func (p *Pool) SetSweepInterval(d time.Duration) {
	if d == 0 {
		d = DefaultSweepInterval
	}
	if d < minSweepInterval {
		d = minSweepInterval
	}
	p.sweepInterval.Store(int64(d))
}

func (p *Pool) IdleThreshold() time.Duration {
	return time.Duration(p.idleThreshold.Load())
}

// SetIdleThreshold sets the idle eviction threshold. Non-positive values
// select the default.
func (p *Pool) SetIdleThreshold(d time.Duration) {
	if d <= 0 {
		d = DefaultIdleThreshold
	}
	p.idleThreshold.Store(int64(d))
}
