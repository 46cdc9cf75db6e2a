// Package tenant contains the multi-tenant usage and quota domain model:
// per-tenant daily counters and the admission decision applied before any new
// unit of tutoring work starts.
package tenant

import (
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metric names one of the per-tenant daily usage counters.
type Metric string

const (
	// MetricTutorTurns counts learner-visible tutoring turns.
	MetricTutorTurns Metric = "tutor_turns"
	// MetricLLMCalls counts calls handed to the AI orchestration service.
	MetricLLMCalls Metric = "llm_calls"
	// MetricSessionStarts counts newly started daily sessions.
	MetricSessionStarts Metric = "session_starts"
)

// IsValid checks that the metric is one of the known counters.
func (m Metric) IsValid() bool {
	switch m {
	case MetricTutorTurns, MetricLLMCalls, MetricSessionStarts:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Usage is one row of per-tenant daily counters. Counters are monotonically
// non-decreasing within a day; the date key resets them conceptually.
type Usage struct {
	TenantID      string
	Date          shared.DateKey
	TutorTurns    int
	LLMCalls      int
	SessionStarts int
	UpdatedAt     time.Time
}

// Value returns the counter for the given metric.
func (u *Usage) Value(m Metric) int {
	switch m {
	case MetricTutorTurns:
		return u.TutorTurns
	case MetricLLMCalls:
		return u.LLMCalls
	case MetricSessionStarts:
		return u.SessionStarts
	default:
		return 0
	}
}

// Limits holds the configured quotas for a tenant. A nil limit means
// unlimited; tenants without a row behave as if every limit were nil.
type Limits struct {
	TenantID           string
	MaxDailyTutorTurns *int
	MaxDailyLLMCalls   *int
	MaxSessionStarts   *int
	AllowedProviders   []string
	BlockedProviders   []string
	UpdatedAt          time.Time
}

// Limit returns the configured limit for the metric, or nil when unlimited.
func (l *Limits) Limit(m Metric) *int {
	if l == nil {
		return nil
	}
	switch m {
	case MetricTutorTurns:
		return l.MaxDailyTutorTurns
	case MetricLLMCalls:
		return l.MaxDailyLLMCalls
	case MetricSessionStarts:
		return l.MaxSessionStarts
	default:
		return nil
	}
}

// Unlimited returns a Limits row with no quotas configured, used when a
// tenant has never been given explicit limits.
func Unlimited(tenantID string) *Limits {
	return &Limits{TenantID: tenantID}
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMISSION
// ══════════════════════════════════════════════════════════════════════════════

// nearLimitRatio is the advisory threshold: reservations at or beyond this
// share of the limit carry a non-fatal near-limit signal.
const nearLimitRatio = 0.8

// Reservation is the outcome of a quota check. Used reflects the counter
// after a successful reservation, or the counter that caused the denial.
type Reservation struct {
	TenantID  string
	Date      shared.DateKey
	Metric    Metric
	Allowed   bool
	Used      int
	Limit     *int
	NearLimit bool
}

// Evaluate applies the admission policy to an observed counter value:
// equality at the limit counts as exceeded, not admitted, and reaching 80%
// of the limit raises the advisory near-limit signal. used is the counter
// value before the reservation.
func Evaluate(tenantID string, date shared.DateKey, m Metric, used, amount int, limit *int) Reservation {
	res := Reservation{
		TenantID: tenantID,
		Date:     date,
		Metric:   m,
		Limit:    limit,
	}

	if limit == nil {
		res.Allowed = true
		res.Used = used + amount
		return res
	}

	if used >= *limit {
		res.Allowed = false
		res.Used = used
		res.NearLimit = true
		return res
	}

	res.Allowed = true
	res.Used = used + amount
	res.NearLimit = float64(res.Used) >= nearLimitRatio*float64(*limit)
	return res
}

// Deny builds a denied reservation from a counter observed at or above its
// limit, used when the storage layer rejects the conditional increment.
func Deny(tenantID string, date shared.DateKey, m Metric, used int, limit *int) Reservation {
	return Reservation{
		TenantID:  tenantID,
		Date:      date,
		Metric:    m,
		Allowed:   false,
		Used:      used,
		Limit:     limit,
		NearLimit: true,
	}
}

// Err returns the admission error for a denied reservation, nil otherwise.
func (r Reservation) Err() error {
	if r.Allowed {
		return nil
	}
	return shared.ErrTenantQuotaExceeded
}
