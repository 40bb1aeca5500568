package bufpool

import (
	"sync/atomic"

	"github.com/marmos91/iobufs/internal/logger"
	"github.com/marmos91/iobufs/pkg/buffer"
)

// Release outcomes and discard reasons reported to Metrics.
const (
	outcomePooled   = "pooled"
	outcomeOverCap  = "over_cap"
	outcomeVolatile = "volatile"

	reasonSizeMismatch = "size_mismatch"
	reasonIdle         = "idle"
)

// Release returns b to the pool. It never fails: buffers that cannot be
// pooled (volatile, immutable or above the soft cap) are dropped and left
// to the garbage collector. A nil buffer is ignored.
//
// The caller must not use b after Release.
func (p *Pool) Release(b buffer.Buffer) {
	if b == nil {
		return
	}

	b.SetLastUsed(p.timestamp())

	role := roleOther
	switch {
	case p.factory.Classify(b, buffer.RoleHeader):
		role = roleHeader
		p.headerUsage.record(b.Len(), b.Capacity())
	case p.factory.Classify(b, buffer.RoleBody):
		role = roleBody
		p.bodyUsage.record(b.Len(), b.Capacity())
	}

	b.Clear()

	if b.IsVolatile() || b.IsImmutable() {
		p.recordRelease(role, outcomeVolatile)
		return
	}

	if p.size.Add(1) > p.maxPooled {
		p.size.Add(-1)
		logger.Debug("Buffer pool full, dropping buffer",
			logger.PoolID(p.id),
			logger.Role(role),
			logger.Size(b.Capacity()),
			logger.KeyMaxPooled, p.maxPooled,
		)
		p.recordRelease(role, outcomeOverCap)
		return
	}

	switch role {
	case roleHeader:
		p.headers.Enqueue(b)
	case roleBody:
		p.bodies.Enqueue(b)
	default:
		p.others.Enqueue(b)
	}
	p.recordRelease(role, outcomePooled)
}

func (p *Pool) recordRelease(role, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordRelease(role, outcome)
	}
}

// usage accumulates fill percentages of released buffers.
type usage struct {
	sum   atomic.Int64
	count atomic.Int64
}

// record adds length*100/capacity. A buffer without capacity cannot be
// measured and resets the accumulator instead.
func (u *usage) record(length, capacity int) {
	if capacity <= 0 {
		u.sum.Store(0)
		u.count.Store(0)
		return
	}
	u.sum.Add(int64(length) * 100 / int64(capacity))
	u.count.Add(1)
}

// mean returns the average fill percentage and the number of samples
// behind it. With no samples the mean is 0.
func (u *usage) mean() (float64, int64) {
	count := u.count.Load()
	if count <= 0 {
		return 0, 0
	}
	return float64(u.sum.Load()) / float64(count), count
}
