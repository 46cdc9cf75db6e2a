package tenant

import (
	"context"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// UsageRepository defines the persistence contract for usage counters and
// limits. Concurrent admissions are decided by the store, never by
// check-then-act in application code.
type UsageRepository interface {
	// GetLimits returns the tenant's configured limits, or an unlimited
	// default when none are stored.
	GetLimits(ctx context.Context, tenantID string) (*Limits, error)

	// PutLimits stores (upserts) a tenant's limits.
	PutLimits(ctx context.Context, l *Limits) error

	// GetUsage returns the tenant's counters for one day. A missing row is
	// returned as a zero-valued Usage, not an error.
	GetUsage(ctx context.Context, tenantID string, date shared.DateKey) (*Usage, error)

	// ReserveUsage atomically increments a counter by amount iff the result
	// stays within limit. The increment is a single conditional statement;
	// two concurrent reservations can never jointly exceed the limit.
	// A nil limit admits unconditionally. The returned value is the counter
	// after the attempt (post-increment on success, the denying value on
	// refusal).
	ReserveUsage(ctx context.Context, tenantID string, date shared.DateKey, m Metric, amount int, limit *int) (used int, admitted bool, err error)
}
