package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create sessions and activities tables
-- Version: 001

CREATE TABLE IF NOT EXISTS sessions (
    id UUID PRIMARY KEY,
    learner_id UUID NOT NULL,
    tenant_id UUID NOT NULL,
    subject VARCHAR(50) NOT NULL,
    session_date DATE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'planned',
    planned_minutes INTEGER NOT NULL DEFAULT 0,
    actual_minutes INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_session_status CHECK (status IN ('planned', 'active', 'completed')),
    CONSTRAINT valid_minutes CHECK (planned_minutes >= 0 AND actual_minutes >= 0),

    -- One session per learner, subject and calendar day. Concurrent starts
    -- race on this constraint, not on application code.
    CONSTRAINT uniq_daily_session UNIQUE (learner_id, subject, session_date)
);

CREATE INDEX IF NOT EXISTS idx_sessions_learner_date ON sessions(learner_id, session_date DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_tenant_date ON sessions(tenant_id, session_date DESC);

CREATE TABLE IF NOT EXISTS activities (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    activity_type VARCHAR(30) NOT NULL,
    title VARCHAR(200) NOT NULL,
    instructions TEXT NOT NULL DEFAULT '',
    estimated_minutes INTEGER NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    position INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP WITH TIME ZONE,
    completed_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_activity_type CHECK (activity_type IN ('calm_checkin', 'micro_lesson', 'guided_practice', 'reflection')),
    CONSTRAINT valid_activity_status CHECK (status IN ('pending', 'in_progress', 'completed', 'skipped'))
);

CREATE INDEX IF NOT EXISTS idx_activities_session ON activities(session_id, position);
`

const migration001Down = `
DROP TABLE IF EXISTS activities;
DROP TABLE IF EXISTS sessions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE PROPOSALS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create difficulty proposals table
-- Version: 002

CREATE TABLE IF NOT EXISTS difficulty_proposals (
    id UUID PRIMARY KEY,
    learner_id UUID NOT NULL,
    tenant_id UUID NOT NULL,
    subject VARCHAR(50) NOT NULL,
    from_level SMALLINT NOT NULL,
    to_level SMALLINT NOT NULL,
    direction VARCHAR(10) NOT NULL,
    rationale TEXT NOT NULL,
    created_by VARCHAR(100) NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'pending',
    decided_by VARCHAR(100),
    decided_at TIMESTAMP WITH TIME ZONE,
    decision_notes TEXT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_levels CHECK (from_level BETWEEN 0 AND 12 AND to_level BETWEEN 0 AND 12),
    CONSTRAINT valid_direction CHECK (direction IN ('harder', 'easier', 'maintain')),
    CONSTRAINT valid_proposal_status CHECK (status IN ('pending', 'approved', 'rejected')),

    -- Decided proposals must carry the decision fields.
    CONSTRAINT decided_fields CHECK (
        (status = 'pending' AND decided_by IS NULL AND decided_at IS NULL)
        OR (status <> 'pending' AND decided_by IS NOT NULL AND decided_at IS NOT NULL)
    )
);

CREATE INDEX IF NOT EXISTS idx_proposals_learner ON difficulty_proposals(tenant_id, learner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_proposals_tenant_status ON difficulty_proposals(tenant_id, status, created_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS difficulty_proposals;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create notifications table
-- Version: 003

CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY,
    tenant_id UUID NOT NULL,
    learner_id UUID,
    recipient_user_id UUID NOT NULL,
    audience VARCHAR(20) NOT NULL DEFAULT 'caregiver',
    notification_type VARCHAR(30) NOT NULL,
    title VARCHAR(200) NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    status VARCHAR(10) NOT NULL DEFAULT 'unread',
    related_proposal_id UUID,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    read_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_audience CHECK (audience IN ('caregiver', 'teacher')),
    CONSTRAINT valid_notification_type CHECK (notification_type IN ('difficulty_proposal', 'session_completed')),
    CONSTRAINT valid_notification_status CHECK (status IN ('unread', 'read'))
);

-- Newest-first listing with a stable tiebreak.
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(tenant_id, recipient_user_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(recipient_user_id) WHERE status = 'unread';
`

const migration003Down = `
DROP TABLE IF EXISTS notifications;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE TENANT USAGE
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create tenant usage counters and limits
-- Version: 004

CREATE TABLE IF NOT EXISTS tenant_usage (
    tenant_id UUID NOT NULL,
    usage_date DATE NOT NULL,
    tutor_turns INTEGER NOT NULL DEFAULT 0,
    llm_calls INTEGER NOT NULL DEFAULT 0,
    session_starts INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_negative_counters CHECK (tutor_turns >= 0 AND llm_calls >= 0 AND session_starts >= 0),

    PRIMARY KEY (tenant_id, usage_date)
);

CREATE TABLE IF NOT EXISTS tenant_limits (
    tenant_id UUID PRIMARY KEY,
    max_daily_tutor_turns INTEGER,
    max_daily_llm_calls INTEGER,
    max_session_starts INTEGER,
    allowed_providers TEXT[] NOT NULL DEFAULT '{}',
    blocked_providers TEXT[] NOT NULL DEFAULT '{}',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration004Down = `
DROP TABLE IF EXISTS tenant_limits;
DROP TABLE IF EXISTS tenant_usage;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: CREATE CAREGIVER ROSTER
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
-- Migration: Create caregiver roster
-- Version: 005

CREATE TABLE IF NOT EXISTS caregiver_roster (
    tenant_id UUID NOT NULL,
    learner_id UUID NOT NULL,
    caregiver_user_id UUID NOT NULL,
    is_primary BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (tenant_id, learner_id, caregiver_user_id)
);

-- At most one primary caregiver per learner.
CREATE UNIQUE INDEX IF NOT EXISTS uniq_primary_caregiver
    ON caregiver_roster(tenant_id, learner_id) WHERE is_primary;
`

const migration005Down = `
DROP TABLE IF EXISTS caregiver_roster;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_sessions",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_proposals",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_notifications",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_tenant_usage",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
		{
			Version: 5,
			Name:    "create_caregiver_roster",
			UpSQL:   migration005Up,
			DownSQL: migration005Down,
		},
	}
}
