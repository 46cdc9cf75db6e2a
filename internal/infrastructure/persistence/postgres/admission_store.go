package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/tenant"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION ADMISSION STORE
// ══════════════════════════════════════════════════════════════════════════════

// AdmissionStore couples the daily-session insert with the quota reservation
// in one transaction. Either both the session row and the counter increment
// commit, or neither does: a denied reservation inserts nothing and a failed
// insert rolls the increment back.
type AdmissionStore struct {
	conn     *Connection
	sessions *SessionRepository
}

// NewAdmissionStore creates a new AdmissionStore.
func NewAdmissionStore(conn *Connection, sessions *SessionRepository) *AdmissionStore {
	return &AdmissionStore{conn: conn, sessions: sessions}
}

// CreateSessionAdmitted implements admission.SessionAdmissionStore.
func (s *AdmissionStore) CreateSessionAdmitted(ctx context.Context, sess *session.Session, m tenant.Metric, amount int, limit *int) (*session.Session, bool, int, bool, error) {
	var (
		used     int
		admitted bool
	)

	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var rerr error
		used, admitted, rerr = reserveUsage(ctx, tx, sess.TenantID, sess.Date, m, amount, limit)
		if rerr != nil {
			return rerr
		}
		if !admitted {
			return shared.ErrTenantQuotaExceeded
		}
		return insertSession(ctx, tx, sess)
	})
	if err == nil {
		return sess, true, used, true, nil
	}

	// Quota denial rolled the transaction back cleanly.
	if shared.IsQuotaExceeded(err) {
		return nil, false, used, false, nil
	}

	// A concurrent caller created the day's session first; the reservation
	// above was rolled back with the insert. Converge on the winner's row.
	if IsUniqueViolation(err) {
		existing, ferr := s.sessions.FindDaily(ctx, sess.LearnerID, sess.Subject, sess.Date)
		if ferr != nil {
			return nil, false, 0, true, ferr
		}
		return existing, false, 0, true, nil
	}

	return nil, false, 0, false, fmt.Errorf("failed to admit session: %w", err)
}
