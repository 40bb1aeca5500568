package bufpool

import (
	"github.com/marmos91/iobufs/internal/logger"
	"github.com/marmos91/iobufs/pkg/buffer"
)

// Counters is a point-in-time view of the queue lengths and the pooled
// total. Under concurrent traffic Total and the sum of the lengths may
// briefly disagree.
type Counters struct {
	Headers int `json:"headers" yaml:"headers"`
	Bodies  int `json:"bodies" yaml:"bodies"`
	Others  int `json:"others" yaml:"others"`
	Total   int `json:"total" yaml:"total"`
}

// Stats extends Counters with usage, direct memory and kind information.
type Stats struct {
	Counters `yaml:",inline"`

	MaxPooled int `json:"max_pooled" yaml:"max_pooled"`

	// HeaderUsage and BodyUsage are mean fill percentages of released
	// buffers, 0 when there are no samples.
	HeaderUsage   float64 `json:"header_usage" yaml:"header_usage"`
	HeaderSamples int64   `json:"header_samples" yaml:"header_samples"`
	BodyUsage     float64 `json:"body_usage" yaml:"body_usage"`
	BodySamples   int64   `json:"body_samples" yaml:"body_samples"`

	DirectBytes int64 `json:"direct_bytes" yaml:"direct_bytes"`

	HeaderKind buffer.StorageKind `json:"header_kind" yaml:"header_kind"`
	BodyKind   buffer.StorageKind `json:"body_kind" yaml:"body_kind"`
}

// Counters returns the current queue lengths and pooled total.
func (p *Pool) Counters() Counters {
	return Counters{
		Headers: p.headers.Len(),
		Bodies:  p.bodies.Len(),
		Others:  p.others.Len(),
		Total:   int(p.size.Load()),
	}
}

// Stats returns the counters plus usage means, direct bytes allocated and
// the current kind of each role.
func (p *Pool) Stats() Stats {
	s := Stats{
		Counters:    p.Counters(),
		MaxPooled:   int(p.maxPooled),
		DirectBytes: p.directBytes.Load(),
		HeaderKind:  p.factory.Kind(buffer.RoleHeader),
		BodyKind:    p.factory.Kind(buffer.RoleBody),
	}
	s.HeaderUsage, s.HeaderSamples = p.headerUsage.mean()
	s.BodyUsage, s.BodySamples = p.bodyUsage.mean()
	return s
}

// Report logs the current stats and publishes them to Metrics. It does not
// change pool state.
func (p *Pool) Report() Stats {
	s := p.Stats()

	logger.Info("Buffer pool report",
		logger.PoolID(p.id),
		logger.KeyHeaders, s.Headers,
		logger.KeyBodies, s.Bodies,
		logger.KeyOthers, s.Others,
		logger.KeyTotal, s.Total,
		logger.KeyHeaderUsage, s.HeaderUsage,
		logger.KeyHeaderSamples, s.HeaderSamples,
		logger.KeyBodyUsage, s.BodyUsage,
		logger.KeyBodySamples, s.BodySamples,
		logger.KeyDirectBytes, s.DirectBytes,
	)

	if p.metrics != nil {
		p.metrics.ObserveCounters(s.Counters)
		p.metrics.ObserveUsage(roleHeader, s.HeaderUsage)
		p.metrics.ObserveUsage(roleBody, s.BodyUsage)
		p.metrics.ObserveDirectBytes(s.DirectBytes)
	}
	return s
}
