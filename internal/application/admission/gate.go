// Package admission implements the tenant usage gate: the admission-control
// step every new unit of tutoring work passes before it may proceed.
package admission

import (
	"context"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/tenant"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// Metrics receives admission telemetry. The near-limit signal is advisory
// only; recording it must never influence the admission outcome.
type Metrics interface {
	ReservationDenied(tenantID string, metric tenant.Metric)
	NearLimit(tenantID string, metric tenant.Metric)
}

// NopMetrics discards admission telemetry.
type NopMetrics struct{}

func (NopMetrics) ReservationDenied(string, tenant.Metric) {}
func (NopMetrics) NearLimit(string, tenant.Metric)         {}

// SessionAdmissionStore couples the guarded daily-session insert with the
// quota reservation in one storage transaction: the session row is inserted
// only if the conditional counter increment is admitted, and a rolled-back
// insert never leaves an increment behind.
type SessionAdmissionStore interface {
	// CreateSessionAdmitted inserts s under the (learner, subject, date)
	// uniqueness constraint, reserving amount units of metric against limit
	// in the same transaction. A nil limit admits unconditionally.
	//
	// Outcomes:
	//   - created: a new row was inserted and the quota reserved.
	//   - !created && out != nil: a concurrent caller won the race; the
	//     pre-existing row is returned and nothing was reserved.
	//   - !admitted: the reservation was denied; no row was inserted.
	CreateSessionAdmitted(ctx context.Context, s *session.Session, m tenant.Metric, amount int, limit *int) (out *session.Session, created bool, used int, admitted bool, err error)
}

// Gate checks and reserves per-tenant daily quota. The actual increment is a
// conditional update inside the store so concurrent admissions cannot jointly
// exceed a limit; the gate only orchestrates and reports.
type Gate struct {
	usage   tenant.UsageRepository
	store   SessionAdmissionStore
	metrics Metrics
	logger  *logger.Logger

	// Enforce toggles quota enforcement. When false every reservation is
	// admitted but counters still accumulate.
	Enforce bool

	// Advisory toggles the near-limit warning emitted at 80% of a limit.
	// Denials are always observed regardless.
	Advisory bool
}

// NewGate creates a new admission gate.
func NewGate(usage tenant.UsageRepository, store SessionAdmissionStore, metrics Metrics, log *logger.Logger) *Gate {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &Gate{
		usage:    usage,
		store:    store,
		metrics:  metrics,
		logger:   log.With(logger.Component("admission")),
		Enforce:  true,
		Advisory: true,
	}
}

// CheckAndReserve admits amount units of the metric for the tenant's day, or
// denies with ErrQuotaExceeded. Limits are read lazily and default to
// unlimited; equality at the limit counts as exceeded.
func (g *Gate) CheckAndReserve(ctx context.Context, tenantID string, date shared.DateKey, m tenant.Metric, amount int) (tenant.Reservation, error) {
	if !m.IsValid() {
		return tenant.Reservation{}, shared.ErrUnknownUsageMetric
	}
	if amount <= 0 {
		amount = 1
	}

	limit, err := g.effectiveLimit(ctx, tenantID, m)
	if err != nil {
		return tenant.Reservation{}, err
	}

	used, admitted, err := g.usage.ReserveUsage(ctx, tenantID, date, m, amount, limit)
	if err != nil {
		return tenant.Reservation{}, fmt.Errorf("admission: reserve usage: %w", err)
	}

	var res tenant.Reservation
	if admitted {
		res = tenant.Evaluate(tenantID, date, m, used-amount, amount, limit)
	} else {
		res = tenant.Deny(tenantID, date, m, used, limit)
	}

	g.observe(res)
	return res, res.Err()
}

// AdmitSessionStart reserves quota for a brand-new daily session and inserts
// the row in one storage transaction. When a concurrent caller already
// created the day's session, the pre-existing row is returned with no
// reservation and a zero-valued admitted reservation.
func (g *Gate) AdmitSessionStart(ctx context.Context, s *session.Session, m tenant.Metric, amount int) (*session.Session, bool, tenant.Reservation, error) {
	if amount <= 0 {
		amount = 1
	}

	limit, err := g.effectiveLimit(ctx, s.TenantID, m)
	if err != nil {
		return nil, false, tenant.Reservation{}, err
	}

	out, created, used, admitted, err := g.store.CreateSessionAdmitted(ctx, s, m, amount, limit)
	if err != nil {
		return nil, false, tenant.Reservation{}, fmt.Errorf("admission: create session: %w", err)
	}

	if !admitted {
		res := tenant.Deny(s.TenantID, s.Date, m, used, limit)
		g.observe(res)
		return nil, false, res, shared.ErrTenantQuotaExceeded
	}

	if !created {
		// Converged on a concurrent winner's row; nothing was reserved.
		return out, false, tenant.Reservation{TenantID: s.TenantID, Date: s.Date, Metric: m, Allowed: true, Used: used, Limit: limit}, nil
	}

	res := tenant.Evaluate(s.TenantID, s.Date, m, used-amount, amount, limit)
	g.observe(res)
	return out, true, res, nil
}

// Peek reports current usage against the configured limit without reserving.
func (g *Gate) Peek(ctx context.Context, tenantID string, date shared.DateKey, m tenant.Metric) (tenant.Reservation, error) {
	limits, err := g.usage.GetLimits(ctx, tenantID)
	if err != nil {
		return tenant.Reservation{}, fmt.Errorf("admission: load limits: %w", err)
	}
	usage, err := g.usage.GetUsage(ctx, tenantID, date)
	if err != nil {
		return tenant.Reservation{}, fmt.Errorf("admission: load usage: %w", err)
	}

	limit := limits.Limit(m)
	return tenant.Reservation{
		TenantID: tenantID,
		Date:     date,
		Metric:   m,
		Used:     usage.Value(m),
		Limit:    limit,
		Allowed:  limit == nil || usage.Value(m) < *limit,
	}, nil
}

// effectiveLimit loads the tenant's configured limit for the metric,
// suppressed entirely when enforcement is toggled off.
func (g *Gate) effectiveLimit(ctx context.Context, tenantID string, m tenant.Metric) (*int, error) {
	limits, err := g.usage.GetLimits(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("admission: load limits: %w", err)
	}
	if !g.Enforce {
		return nil, nil
	}
	return limits.Limit(m), nil
}

func (g *Gate) observe(res tenant.Reservation) {
	if !res.Allowed {
		g.metrics.ReservationDenied(res.TenantID, res.Metric)
		g.logger.Warn("tenant quota exceeded",
			logger.TenantID(res.TenantID),
			logger.Metric(string(res.Metric)),
			logger.Int("used", res.Used),
		)
		return
	}
	if res.NearLimit && g.Advisory {
		g.metrics.NearLimit(res.TenantID, res.Metric)
		g.logger.Warn("tenant approaching daily quota",
			logger.TenantID(res.TenantID),
			logger.Metric(string(res.Metric)),
			logger.Int("used", res.Used),
		)
	}
}
