package logger

import (
	"fmt"
	"log/slog"
	"time"
)

// Standard field keys. Use them for every pool log line so that output can
// be filtered and aggregated consistently.
const (
	// ========================================================================
	// Pool identity
	// ========================================================================
	KeyPoolID    = "pool_id"   // Pool instance identifier
	KeyComponent = "component" // Emitting component: pool, inspector, soak

	// ========================================================================
	// Buffers
	// ========================================================================
	KeyRole     = "role"      // Service role: header, body, other
	KeyKind     = "kind"      // Storage kind: byte_array, direct, indirect
	KeySize     = "size"      // Buffer capacity in bytes
	KeyReason   = "reason"    // Discard reason
	KeyEvicted  = "evicted"   // Buffers evicted by a sweep
	KeyBudgetKB = "budget_kb" // Direct memory budget in KiB

	// ========================================================================
	// Pool state
	// ========================================================================
	KeyHeaders       = "headers"        // Header queue length
	KeyBodies        = "bodies"         // Body queue length
	KeyOthers        = "others"         // Other queue length
	KeyTotal         = "total"          // Approximate pooled total
	KeyMaxPooled     = "max_pooled"     // Soft cap
	KeyHeaderUsage   = "header_usage"   // Mean header fill percentage
	KeyBodyUsage     = "body_usage"     // Mean body fill percentage
	KeyHeaderSamples = "header_samples" // Header usage samples
	KeyBodySamples   = "body_samples"   // Body usage samples
	KeyDirectBytes   = "direct_bytes"   // Direct bytes allocated

	// ========================================================================
	// Timing
	// ========================================================================
	KeyInterval     = "interval"      // Sweep interval
	KeyIdle         = "idle"          // Idle threshold
	KeyIdleEviction = "idle_eviction" // Whether idle eviction is enabled
	KeyDurationMs   = "duration_ms"   // Operation duration in milliseconds

	// ========================================================================
	// Misc
	// ========================================================================
	KeyPath  = "path"  // Filesystem path
	KeyError = "error" // Error message
)

// ============================================================================
// Field constructors
// ============================================================================

func PoolID(id string) slog.Attr { return slog.String(KeyPoolID, id) }

func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

func Role(role string) slog.Attr { return slog.String(KeyRole, role) }

func Kind(k fmt.Stringer) slog.Attr { return slog.String(KeyKind, k.String()) }

func Size(n int) slog.Attr { return slog.Int(KeySize, n) }

func Reason(r string) slog.Attr { return slog.String(KeyReason, r) }

func BudgetKB(kb int64) slog.Attr { return slog.Int64(KeyBudgetKB, kb) }

func Interval(d time.Duration) slog.Attr { return slog.Duration(KeyInterval, d) }

// DurationMs returns the elapsed time since start in milliseconds.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(time.Since(start).Microseconds())/1000.0)
}

func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Err returns an error attribute. A nil error yields an empty attribute,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
