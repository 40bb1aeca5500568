package bufpool

import (
	"github.com/marmos91/iobufs/internal/logger"
	"github.com/marmos91/iobufs/internal/queue"
	"github.com/marmos91/iobufs/pkg/buffer"
)

// Sweep evicts idle heap buffers from the header and body queues and
// returns how many were evicted. The inspector calls it when idle eviction
// is enabled; it may also be called directly.
//
// A queue is skipped while its role still allocates direct memory. Within a
// queue, the walk starts at the head and stops at the first buffer that was
// never released or is not yet idle. Idle direct buffers are moved to the
// tail instead of being evicted, and the walk ends when it comes back around
// to the first buffer it moved.
func (p *Pool) Sweep() int {
	now := p.timestamp()
	threshold := p.IdleThreshold().Milliseconds()

	evicted := 0
	for _, role := range []buffer.ServiceRole{buffer.RoleHeader, buffer.RoleBody} {
		if p.factory.Kind(role) == buffer.KindDirect {
			continue
		}
		n := p.sweepQueue(p.queue(role), now, threshold)
		if n > 0 {
			logger.Debug("Evicted idle buffers",
				logger.PoolID(p.id),
				logger.Role(roleLabel(role)),
				logger.KeyEvicted, n,
			)
		}
		evicted += n
	}

	if p.metrics != nil {
		for i := 0; i < evicted; i++ {
			p.metrics.RecordDiscard(reasonIdle)
		}
	}
	return evicted
}

// sweepQueue walks q at most once around. The step limit keeps the walk
// finite when the lap marker is checked out by another goroutine.
func (p *Pool) sweepQueue(q *queue.Queue[buffer.Buffer], now, threshold int64) int {
	var first buffer.Buffer
	evicted := 0

	for steps := q.Len(); steps > 0; steps-- {
		head, ok := q.Peek()
		if !ok || (first != nil && head == first) {
			break
		}

		lastUsed := head.LastUsed()
		if lastUsed <= 0 || now-lastUsed <= threshold {
			break
		}

		popped, ok := q.Dequeue()
		if !ok {
			break
		}

		if popped != head {
			// lost a race with a checkout; keep whatever we got
			q.Enqueue(popped)
			if first == nil {
				first = popped
			}
			continue
		}

		if popped.Kind() != buffer.KindDirect {
			p.size.Add(-1)
			evicted++
			continue
		}

		q.Enqueue(popped)
		if first == nil {
			first = popped
		}
	}

	return evicted
}
