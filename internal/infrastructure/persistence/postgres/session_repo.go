package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// dateValue converts a validated date key to its day start for DATE columns.
func dateValue(d shared.DateKey) time.Time {
	t, _ := d.Time()
	return t
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements session.Repository for PostgreSQL.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

const sessionColumns = `id, learner_id, tenant_id, subject, session_date, status,
	   planned_minutes, actual_minutes, created_at, updated_at`

const activityColumns = `id, session_id, activity_type, title, instructions,
	   estimated_minutes, status, position, started_at, completed_at`

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// CreateOrGet inserts the session with its activities. The unique
// (learner_id, subject, session_date) constraint decides racing creators:
// the loser's insert is rolled back and the winner's row is returned.
func (r *SessionRepository) CreateOrGet(ctx context.Context, s *session.Session) (*session.Session, bool, error) {
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return insertSession(ctx, tx, s)
	})
	if err == nil {
		return s, true, nil
	}
	if !IsUniqueViolation(err) {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}

	existing, ferr := r.FindDaily(ctx, s.LearnerID, s.Subject, s.Date)
	if ferr != nil {
		return nil, false, ferr
	}
	return existing, false, nil
}

// insertSession writes the session row and its activities inside tx.
func insertSession(ctx context.Context, q Querier, s *session.Session) error {
	const query = `
		INSERT INTO sessions (
			id, learner_id, tenant_id, subject, session_date, status,
			planned_minutes, actual_minutes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.Exec(ctx, query,
		s.ID,
		s.LearnerID,
		s.TenantID,
		s.Subject.String(),
		dateValue(s.Date),
		string(s.Status),
		s.PlannedMinutes,
		s.ActualMinutes,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return err
	}

	const actQuery = `
		INSERT INTO activities (
			id, session_id, activity_type, title, instructions,
			estimated_minutes, status, position, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i := range s.Activities {
		act := &s.Activities[i]
		_, err := q.Exec(ctx, actQuery,
			act.ID,
			act.SessionID,
			string(act.Type),
			act.Title,
			act.Instructions,
			act.EstimatedMinutes,
			string(act.Status),
			act.Position,
			act.StartedAt,
			act.CompletedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Start marks the session active iff it is still planned.
func (r *SessionRepository) Start(ctx context.Context, id string) (bool, error) {
	const query = `
		UPDATE sessions
		SET status = 'active', updated_at = NOW()
		WHERE id = $1 AND status = 'planned'
	`
	tag, err := r.conn.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to start session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateActivity persists one mutated activity and recomputes the session's
// derived fields from the activity rows inside the same transaction. The
// session row is locked first, so concurrent updates to sibling activities
// serialize and each recompute sees the previous writer's commit; the derived
// status can never go stale. The activity update is conditional on the status
// the caller observed; a lost race surfaces as ErrActivityTransition. The
// authoritative status and actualMinutes are written back into s.
func (r *SessionRepository) UpdateActivity(ctx context.Context, s *session.Session, act *session.Activity, expectedCurrent session.ActivityStatus) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		const lockQuery = `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`
		var lockedID string
		if err := tx.QueryRow(ctx, lockQuery, s.ID).Scan(&lockedID); err != nil {
			if IsNoRows(err) {
				return shared.ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		const actQuery = `
			UPDATE activities
			SET status = $1, started_at = $2, completed_at = $3
			WHERE id = $4 AND session_id = $5 AND status = $6
		`
		tag, err := tx.Exec(ctx, actQuery,
			string(act.Status),
			act.StartedAt,
			act.CompletedAt,
			act.ID,
			s.ID,
			string(expectedCurrent),
		)
		if err != nil {
			return fmt.Errorf("failed to update activity: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrActivityTransition
		}

		const sessQuery = `
			UPDATE sessions
			SET status = CASE
					WHEN NOT EXISTS (
						SELECT 1 FROM activities a
						WHERE a.session_id = sessions.id
						  AND a.status NOT IN ('completed', 'skipped')
					) THEN 'completed'
					WHEN status = 'planned' THEN 'active'
					ELSE status
				END,
				actual_minutes = (
					SELECT COALESCE(SUM(a.estimated_minutes), 0)
					FROM activities a
					WHERE a.session_id = sessions.id AND a.status = 'completed'
				),
				updated_at = $2
			WHERE id = $1
			RETURNING status, actual_minutes
		`
		var status string
		if err := tx.QueryRow(ctx, sessQuery, s.ID, s.UpdatedAt).Scan(&status, &s.ActualMinutes); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		s.Status = session.Status(status)
		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns a session with its activities.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	s, err := scanSession(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadActivities(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FindDaily returns the session for the given daily key.
func (r *SessionRepository) FindDaily(ctx context.Context, learnerID string, subject session.Subject, date shared.DateKey) (*session.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sessions
		WHERE learner_id = $1 AND subject = $2 AND session_date = $3
	`, sessionColumns)
	s, err := scanSession(r.conn.QueryRow(ctx, query, learnerID, subject.String(), dateValue(date)))
	if err != nil {
		return nil, err
	}
	if err := r.loadActivities(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) loadActivities(ctx context.Context, s *session.Session) error {
	query := fmt.Sprintf(`
		SELECT %s FROM activities
		WHERE session_id = $1
		ORDER BY position
	`, activityColumns)

	rows, err := r.conn.Query(ctx, query, s.ID)
	if err != nil {
		return fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			act                session.Activity
			actType, actStatus string
		)
		if err := rows.Scan(
			&act.ID,
			&act.SessionID,
			&actType,
			&act.Title,
			&act.Instructions,
			&act.EstimatedMinutes,
			&actStatus,
			&act.Position,
			&act.StartedAt,
			&act.CompletedAt,
		); err != nil {
			return fmt.Errorf("failed to scan activity: %w", err)
		}
		act.Type = session.ActivityType(actType)
		act.Status = session.ActivityStatus(actStatus)
		s.Activities = append(s.Activities, act)
	}
	return rows.Err()
}

// rowScanner abstracts pgx.Row for single-row scans.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*session.Session, error) {
	var (
		s               session.Session
		subject, status string
		day             time.Time
	)
	err := row.Scan(
		&s.ID,
		&s.LearnerID,
		&s.TenantID,
		&subject,
		&day,
		&status,
		&s.PlannedMinutes,
		&s.ActualMinutes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	s.Subject = session.Subject(subject)
	s.Status = session.Status(status)
	s.Date = shared.NewDateKey(day)
	return &s, nil
}
