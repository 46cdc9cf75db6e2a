package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/internal/infrastructure/persistence/postgres"
)

// ErrNoCaregiver is returned when a learner has no caregiver on the roster.
var ErrNoCaregiver = shared.NewDomainError("caregiver", "Resolve", shared.ErrNotFound, "no caregiver on roster for learner")

// RosterResolver resolves a learner's caregiver from the caregiver_roster
// table. The primary caregiver wins; if none is marked primary, the most
// recently added caregiver is used.
type RosterResolver struct {
	conn *postgres.Connection
}

// NewRosterResolver creates a roster-backed caregiver resolver.
func NewRosterResolver(conn *postgres.Connection) *RosterResolver {
	return &RosterResolver{conn: conn}
}

// ResolveCaregiver implements fanout.CaregiverResolver.
func (r *RosterResolver) ResolveCaregiver(ctx context.Context, tenantID, learnerID string) (string, error) {
	query := `
		SELECT caregiver_user_id
		FROM caregiver_roster
		WHERE tenant_id = $1 AND learner_id = $2
		ORDER BY is_primary DESC, created_at DESC
		LIMIT 1`

	var recipient string
	err := r.conn.QueryRow(ctx, query, tenantID, learnerID).Scan(&recipient)
	if err != nil {
		if postgres.IsNoRows(err) {
			return "", ErrNoCaregiver
		}
		return "", fmt.Errorf("resolve caregiver: %w", err)
	}

	return recipient, nil
}

// AddCaregiver registers a caregiver for a learner. Marking a caregiver as
// primary demotes the previous primary in the same statement batch so the
// partial unique index never rejects the insert.
func (r *RosterResolver) AddCaregiver(ctx context.Context, tenantID, learnerID, caregiverUserID string, primary bool) error {
	return r.conn.WithTx(ctx, postgres.DefaultTxOptions(), func(tx pgx.Tx) error {
		if primary {
			demote := `
				UPDATE caregiver_roster
				SET is_primary = FALSE
				WHERE tenant_id = $1 AND learner_id = $2 AND is_primary`
			if _, err := tx.Exec(ctx, demote, tenantID, learnerID); err != nil {
				return fmt.Errorf("demote primary caregiver: %w", err)
			}
		}

		upsert := `
			INSERT INTO caregiver_roster (tenant_id, learner_id, caregiver_user_id, is_primary)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tenant_id, learner_id, caregiver_user_id)
			DO UPDATE SET is_primary = EXCLUDED.is_primary`
		if _, err := tx.Exec(ctx, upsert, tenantID, learnerID, caregiverUserID, primary); err != nil {
			return fmt.Errorf("add caregiver: %w", err)
		}

		return nil
	})
}
