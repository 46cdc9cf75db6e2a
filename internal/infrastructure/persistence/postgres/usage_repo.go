package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/tenant"
)

// ══════════════════════════════════════════════════════════════════════════════
// TENANT USAGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UsageRepository implements tenant.UsageRepository for PostgreSQL. The
// reservation is a single conditional upsert, so concurrent admissions are
// serialized by the row lock and can never jointly exceed a limit.
type UsageRepository struct {
	conn *Connection
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(conn *Connection) *UsageRepository {
	return &UsageRepository{conn: conn}
}

// usageColumn maps a metric to its counter column. Metrics are a closed set;
// the column name is never taken from input.
func usageColumn(m tenant.Metric) (string, error) {
	switch m {
	case tenant.MetricTutorTurns:
		return "tutor_turns", nil
	case tenant.MetricLLMCalls:
		return "llm_calls", nil
	case tenant.MetricSessionStarts:
		return "session_starts", nil
	default:
		return "", shared.ErrUnknownUsageMetric
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Limits
// ─────────────────────────────────────────────────────────────────────────────

// GetLimits returns the tenant's configured limits, or an unlimited default.
func (r *UsageRepository) GetLimits(ctx context.Context, tenantID string) (*tenant.Limits, error) {
	const query = `
		SELECT tenant_id, max_daily_tutor_turns, max_daily_llm_calls,
			   max_session_starts, allowed_providers, blocked_providers, updated_at
		FROM tenant_limits
		WHERE tenant_id = $1
	`

	var l tenant.Limits
	err := r.conn.QueryRow(ctx, query, tenantID).Scan(
		&l.TenantID,
		&l.MaxDailyTutorTurns,
		&l.MaxDailyLLMCalls,
		&l.MaxSessionStarts,
		&l.AllowedProviders,
		&l.BlockedProviders,
		&l.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return tenant.Unlimited(tenantID), nil
		}
		return nil, fmt.Errorf("failed to query tenant limits: %w", err)
	}
	return &l, nil
}

// PutLimits stores (upserts) a tenant's limits.
func (r *UsageRepository) PutLimits(ctx context.Context, l *tenant.Limits) error {
	const query = `
		INSERT INTO tenant_limits (
			tenant_id, max_daily_tutor_turns, max_daily_llm_calls,
			max_session_starts, allowed_providers, blocked_providers, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			max_daily_tutor_turns = EXCLUDED.max_daily_tutor_turns,
			max_daily_llm_calls = EXCLUDED.max_daily_llm_calls,
			max_session_starts = EXCLUDED.max_session_starts,
			allowed_providers = EXCLUDED.allowed_providers,
			blocked_providers = EXCLUDED.blocked_providers,
			updated_at = NOW()
	`
	_, err := r.conn.Exec(ctx, query,
		l.TenantID,
		l.MaxDailyTutorTurns,
		l.MaxDailyLLMCalls,
		l.MaxSessionStarts,
		l.AllowedProviders,
		l.BlockedProviders,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant limits: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Counters
// ─────────────────────────────────────────────────────────────────────────────

// GetUsage returns the tenant's counters for one day; a missing row is a
// zero-valued Usage.
func (r *UsageRepository) GetUsage(ctx context.Context, tenantID string, date shared.DateKey) (*tenant.Usage, error) {
	const query = `
		SELECT tenant_id, usage_date, tutor_turns, llm_calls, session_starts, updated_at
		FROM tenant_usage
		WHERE tenant_id = $1 AND usage_date = $2
	`

	u, err := scanUsage(r.conn.QueryRow(ctx, query, tenantID, dateValue(date)))
	if err != nil {
		if IsNoRows(err) {
			return &tenant.Usage{TenantID: tenantID, Date: date}, nil
		}
		return nil, err
	}
	return u, nil
}

// ReserveUsage atomically increments a counter by amount iff the result stays
// within limit.
func (r *UsageRepository) ReserveUsage(ctx context.Context, tenantID string, date shared.DateKey, m tenant.Metric, amount int, limit *int) (int, bool, error) {
	return reserveUsage(ctx, r.conn, tenantID, date, m, amount, limit)
}

// reserveUsage runs the conditional increment on any Querier so the session
// admission store can reuse it inside its transaction.
func reserveUsage(ctx context.Context, q Querier, tenantID string, date shared.DateKey, m tenant.Metric, amount int, limit *int) (int, bool, error) {
	col, err := usageColumn(m)
	if err != nil {
		return 0, false, err
	}

	if limit == nil {
		// Unlimited: a plain upsert increment.
		query := fmt.Sprintf(`
			INSERT INTO tenant_usage (tenant_id, usage_date, %[1]s, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (tenant_id, usage_date) DO UPDATE
			SET %[1]s = tenant_usage.%[1]s + $3, updated_at = NOW()
			RETURNING %[1]s
		`, col)

		var used int
		if err := q.QueryRow(ctx, query, tenantID, dateValue(date), amount).Scan(&used); err != nil {
			return 0, false, fmt.Errorf("failed to reserve usage: %w", err)
		}
		return used, true, nil
	}

	if amount > *limit {
		// Even a fresh day cannot admit this; report the observed counter.
		used, err := currentUsage(ctx, q, tenantID, date, col)
		return used, false, err
	}

	// The DO UPDATE branch admits only while the post-increment value stays
	// at or below the limit; a denied update returns no row.
	query := fmt.Sprintf(`
		INSERT INTO tenant_usage (tenant_id, usage_date, %[1]s, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, usage_date) DO UPDATE
		SET %[1]s = tenant_usage.%[1]s + $3, updated_at = NOW()
		WHERE tenant_usage.%[1]s + $3 <= $4
		RETURNING %[1]s
	`, col)

	var used int
	err = q.QueryRow(ctx, query, tenantID, dateValue(date), amount, *limit).Scan(&used)
	if err == nil {
		return used, true, nil
	}
	if !IsNoRows(err) {
		return 0, false, fmt.Errorf("failed to reserve usage: %w", err)
	}

	used, err = currentUsage(ctx, q, tenantID, date, col)
	return used, false, err
}

func currentUsage(ctx context.Context, q Querier, tenantID string, date shared.DateKey, col string) (int, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenant_usage
		WHERE tenant_id = $1 AND usage_date = $2
	`, col)

	var used int
	err := q.QueryRow(ctx, query, tenantID, dateValue(date)).Scan(&used)
	if err != nil {
		if IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query usage: %w", err)
	}
	return used, nil
}

func scanUsage(row rowScanner) (*tenant.Usage, error) {
	var (
		u   tenant.Usage
		day time.Time
	)
	err := row.Scan(
		&u.TenantID,
		&day,
		&u.TutorTurns,
		&u.LLMCalls,
		&u.SessionStarts,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Date = shared.NewDateKey(day)
	return &u, nil
}
