// Package bufpool provides a pool of reusable I/O buffers.
//
// The pool keeps three FIFO queues: header buffers, body buffers and
// buffers of any other size. Checkout pops from the matching queue and
// allocates through a buffer.Factory on a miss; Release puts the buffer
// back into the queue its classification selects. All state is kept in
// atomics and lock-free queues, so no lock is held across an operation.
//
// # Soft Cap
//
// The pool tracks the total number of queued buffers. A release that would
// push the total above MaxPooled drops the buffer instead. The total and the
// sum of the queue lengths are only eventually consistent: each operation
// updates them one after the other.
//
// # Direct Memory Budget
//
// When a direct budget (in KiB) is set, every header or body miss that
// allocates direct memory is charged against it. The first miss that would
// exceed the budget downgrades that role to heap buffers for the rest of the
// pool's life. Buffers created before the downgrade stay pooled alongside the
// new ones.
//
// # Idle Eviction
//
// With idle eviction enabled, the background inspector periodically walks
// the header and body queues from the head and drops heap buffers released
// longer than the idle threshold ago. Direct buffers are never evicted, and a
// queue whose role still allocates direct memory is not walked at all.
//
// # Usage
//
//	pool := bufpool.New(nil)
//	pool.Start(ctx)
//	defer pool.Stop()
//
//	buf, err := pool.CheckoutBody()
//	if err != nil {
//		return err
//	}
//	defer pool.Release(buf)
package bufpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/iobufs/internal/logger"
	"github.com/marmos91/iobufs/internal/queue"
	"github.com/marmos91/iobufs/pkg/buffer"
)

const (
	// DefaultHeaderSize fits typical request and response headers (6KB)
	DefaultHeaderSize = 6 << 10

	// DefaultBodySize is the size of content buffers (16KB)
	DefaultBodySize = 16 << 10

	// DefaultMaxPooled is the default soft cap on pooled buffers.
	DefaultMaxPooled = 1024

	// DefaultSweepInterval is how often the inspector runs.
	DefaultSweepInterval = 10 * time.Second

	// DefaultIdleThreshold is how long a pooled buffer may sit unused
	// before the sweep may evict it.
	DefaultIdleThreshold = 30 * time.Minute

	// MinSweepInterval is the shortest accepted sweep interval.
	MinSweepInterval = 10 * time.Second
)

// minSweepInterval is the enforced floor. Tests lower it.
var minSweepInterval = MinSweepInterval

// Tunables are the pool settings that can change while the pool runs.
type Tunables struct {
	// DirectBudgetKB caps direct memory allocated on misses, in KiB.
	// Zero disables the budget.
	DirectBudgetKB int64

	// IdleEviction enables the idle sweep in the background inspector.
	IdleEviction bool

	// SweepInterval is the inspector period. Values below 10s are raised
	// to 10s; zero selects the default.
	SweepInterval time.Duration

	// IdleThreshold is how long a buffer must sit in a queue before the
	// sweep may evict it. Zero selects the default.
	IdleThreshold time.Duration
}

// Config holds configuration for creating a pool.
type Config struct {
	// Types selects storage kinds and sizes. Zero sizes fall back to
	// DefaultHeaderSize and DefaultBodySize; kinds are used as given.
	Types buffer.Types

	// MaxPooled is the soft cap on the total number of pooled buffers
	// (default: 1024).
	MaxPooled int

	Tunables Tunables

	// Metrics receives pool events. Nil disables metrics.
	Metrics Metrics

	// Now is the clock used for release timestamps and idle checks.
	// Defaults to time.Now.
	Now func() time.Time
}

// DefaultTypes returns indirect headers, direct bodies and indirect others.
func DefaultTypes() buffer.Types {
	return buffer.Types{
		HeaderKind: buffer.KindIndirect,
		HeaderSize: DefaultHeaderSize,
		BodyKind:   buffer.KindDirect,
		BodySize:   DefaultBodySize,
		OtherKind:  buffer.KindIndirect,
	}
}

// DefaultTunables returns the default runtime settings: no direct budget,
// idle eviction off, 10s sweep interval and 30 minute idle threshold.
func DefaultTunables() Tunables {
	return Tunables{
		SweepInterval: DefaultSweepInterval,
		IdleThreshold: DefaultIdleThreshold,
	}
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		Types:     DefaultTypes(),
		MaxPooled: DefaultMaxPooled,
		Tunables:  DefaultTunables(),
	}
}

// Pool is a concurrent buffer pool. Create it with New.
type Pool struct {
	id        string
	factory   *buffer.Factory
	maxPooled int64
	metrics   Metrics
	now       func() time.Time
	epoch     time.Time

	headers *queue.Queue[buffer.Buffer]
	bodies  *queue.Queue[buffer.Buffer]
	others  *queue.Queue[buffer.Buffer]
	size    atomic.Int64

	directBytes    atomic.Int64
	directBudgetKB atomic.Int64
	idleEviction   atomic.Bool
	sweepInterval  atomic.Int64 // nanoseconds
	idleThreshold  atomic.Int64 // nanoseconds

	headerUsage usage
	bodyUsage   usage

	// mu guards the inspector lifecycle only.
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a pool. If cfg is nil, DefaultConfig is used. It panics if a
// configured storage kind is invalid.
func New(cfg *Config) *Pool {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}

	types := cfg.Types
	if types.HeaderSize <= 0 {
		types.HeaderSize = DefaultHeaderSize
	}
	if types.BodySize <= 0 {
		types.BodySize = DefaultBodySize
	}
	for _, k := range []buffer.StorageKind{types.HeaderKind, types.BodyKind, types.OtherKind} {
		if !k.Valid() {
			panic(fmt.Sprintf("bufpool: invalid storage kind %d", int32(k)))
		}
	}

	maxPooled := cfg.MaxPooled
	if maxPooled <= 0 {
		maxPooled = DefaultMaxPooled
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	p := &Pool{
		id:        uuid.NewString(),
		factory:   buffer.NewFactory(types),
		maxPooled: int64(maxPooled),
		metrics:   cfg.Metrics,
		now:       now,
		epoch:     now(),
		headers:   queue.New[buffer.Buffer](),
		bodies:    queue.New[buffer.Buffer](),
		others:    queue.New[buffer.Buffer](),
	}
	p.storeTunables(cfg.Tunables)

	logger.Info("Buffer pool created",
		logger.PoolID(p.id),
		"factory", p.factory.String(),
		logger.KeyMaxPooled, maxPooled,
		logger.BudgetKB(p.DirectBudgetKB()),
	)

	return p
}

// ID returns the pool's instance identifier, used in logs.
func (p *Pool) ID() string { return p.id }

// Factory returns the factory the pool allocates through.
func (p *Pool) Factory() *buffer.Factory { return p.factory }

// MaxPooled returns the soft cap.
func (p *Pool) MaxPooled() int { return int(p.maxPooled) }

// timestamp returns monotonic milliseconds since the pool was created,
// offset by one so that a stamped buffer never reads as unset.
func (p *Pool) timestamp() int64 {
	return p.now().Sub(p.epoch).Milliseconds() + 1
}

func (p *Pool) queue(role buffer.ServiceRole) *queue.Queue[buffer.Buffer] {
	if role == buffer.RoleHeader {
		return p.headers
	}
	return p.bodies
}

func (p *Pool) usage(role buffer.ServiceRole) *usage {
	if role == buffer.RoleHeader {
		return &p.headerUsage
	}
	return &p.bodyUsage
}

func (p *Pool) String() string {
	return fmt.Sprintf("Pool [%d/%d@%d,%d/%d@%d,%d/%d@-]",
		p.headers.Len(), p.maxPooled, p.factory.HeaderSize(),
		p.bodies.Len(), p.maxPooled, p.factory.BodySize(),
		p.others.Len(), p.maxPooled)
}
