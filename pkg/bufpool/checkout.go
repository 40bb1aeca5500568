package bufpool

import (
	"fmt"

	"github.com/marmos91/iobufs/internal/logger"
	"github.com/marmos91/iobufs/pkg/buffer"
)

// Metric labels for roles. Other-sized buffers have no role of their own.
const (
	roleHeader = "header"
	roleBody   = "body"
	roleOther  = "other"
)

func roleLabel(role buffer.ServiceRole) string {
	if role == buffer.RoleHeader {
		return roleHeader
	}
	return roleBody
}

// CheckoutHeader returns a header buffer, reusing a pooled one if available.
// The returned buffer is empty.
func (p *Pool) CheckoutHeader() (buffer.Buffer, error) {
	return p.checkout(buffer.RoleHeader)
}

// CheckoutBody returns a body buffer, reusing a pooled one if available.
// The returned buffer is empty.
func (p *Pool) CheckoutBody() (buffer.Buffer, error) {
	return p.checkout(buffer.RoleBody)
}

func (p *Pool) checkout(role buffer.ServiceRole) (buffer.Buffer, error) {
	if b, ok := p.queue(role).Dequeue(); ok {
		p.size.Add(-1)
		p.recordCheckout(roleLabel(role), true)
		return b, nil
	}

	charged := p.chargeDirect(role)

	var (
		b   buffer.Buffer
		err error
	)
	if role == buffer.RoleHeader {
		b, err = p.factory.NewHeader()
	} else {
		b, err = p.factory.NewBody()
	}
	if err != nil {
		if charged {
			p.directBytes.Add(-int64(p.factory.Size(role)))
		}
		return nil, fmt.Errorf("checkout %s buffer: %w", role, err)
	}

	p.recordCheckout(roleLabel(role), false)
	return b, nil
}

// chargeDirect accounts a direct allocation for role against the budget.
// If the budget would be exceeded the role is downgraded to heap buffers and
// nothing is charged. It reports whether the size was charged.
//
// Concurrent misses may both pass the check before either downgrades; the
// overshoot is bounded by the number of concurrent misses.
func (p *Pool) chargeDirect(role buffer.ServiceRole) bool {
	budget := p.directBudgetKB.Load()
	if budget <= 0 || p.factory.Kind(role) != buffer.KindDirect {
		return false
	}

	size := int64(p.factory.Size(role))
	if p.directBytes.Add(size) <= budget*1024 {
		return true
	}
	p.directBytes.Add(-size)

	if p.factory.Downgrade(role) {
		logger.Warn("Direct buffer budget exhausted, switching to heap buffers",
			logger.PoolID(p.id),
			logger.Role(roleLabel(role)),
			logger.BudgetKB(budget),
			logger.KeyDirectBytes, p.directBytes.Load(),
		)
		if p.metrics != nil {
			p.metrics.RecordDowngrade(roleLabel(role))
		}
	}
	return false
}

// Checkout returns a buffer with exactly size bytes of capacity.
//
// When size equals the header or body size and that role is configured with
// the same kind as other buffers, the request is served from the role's
// queue. Otherwise pooled other buffers are popped until one of the right
// capacity is found; the ones skipped on the way are dropped.
func (p *Pool) Checkout(size int) (buffer.Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("checkout %d bytes: %w", size, buffer.ErrInvalidSize)
	}

	types := p.factory.Types()
	if types.HeaderKind == types.OtherKind && size == types.HeaderSize {
		return p.CheckoutHeader()
	}
	if types.BodyKind == types.OtherKind && size == types.BodySize {
		return p.CheckoutBody()
	}

	for {
		b, ok := p.others.Dequeue()
		if !ok {
			break
		}
		p.size.Add(-1)
		if b.Capacity() == size {
			p.recordCheckout(roleOther, true)
			return b, nil
		}
		p.discard(reasonSizeMismatch, b)
	}

	b, err := p.factory.NewOther(size)
	if err != nil {
		return nil, fmt.Errorf("checkout %d bytes: %w", size, err)
	}
	p.recordCheckout(roleOther, false)
	return b, nil
}

func (p *Pool) recordCheckout(role string, hit bool) {
	if p.metrics != nil {
		p.metrics.RecordCheckout(role, hit)
	}
}

// discard drops a buffer that left a queue without being handed out.
func (p *Pool) discard(reason string, b buffer.Buffer) {
	logger.Debug("Buffer discarded",
		logger.PoolID(p.id),
		logger.Reason(reason),
		logger.Kind(b.Kind()),
		logger.Size(b.Capacity()),
	)
	if p.metrics != nil {
		p.metrics.RecordDiscard(reason)
	}
}
