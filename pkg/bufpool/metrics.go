package bufpool

// Metrics receives pool events. Implementations must be safe for concurrent
// use. A nil Metrics in Config disables collection with zero overhead.
//
// Role labels are "header", "body" and "other".
type Metrics interface {
	// RecordCheckout records a checkout; hit is true when the buffer came
	// from a queue rather than a fresh allocation.
	RecordCheckout(role string, hit bool)

	// RecordRelease records a release outcome: "pooled", "over_cap" or
	// "volatile".
	RecordRelease(role, outcome string)

	// RecordDiscard records a buffer dropped from a queue: "size_mismatch"
	// or "idle".
	RecordDiscard(reason string)

	// RecordDowngrade records a role switching from direct to heap buffers.
	RecordDowngrade(role string)

	ObserveCounters(c Counters)
	ObserveUsage(role string, mean float64)
	ObserveDirectBytes(n int64)
}
