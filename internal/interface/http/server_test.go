package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/artpromedia/aivo-v5-sub002/internal/application/admission"
	"github.com/artpromedia/aivo-v5-sub002/internal/application/command"
	"github.com/artpromedia/aivo-v5-sub002/internal/application/fanout"
	"github.com/artpromedia/aivo-v5-sub002/internal/application/query"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/notification"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/tenant"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

const testJWTSecret = "test-secret"

// ──────────────────────────────────────────────────────────────────────────────
// IN-MEMORY STORES
// ──────────────────────────────────────────────────────────────────────────────

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) GenerateID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%03d", g.n)
}

type memSessions struct {
	mu   sync.Mutex
	byID map[string]*session.Session
}

func (r *memSessions) dailyKey(learnerID string, subject session.Subject, date shared.DateKey) string {
	return learnerID + "|" + string(subject) + "|" + string(date)
}

func (r *memSessions) CreateOrGet(ctx context.Context, s *session.Session) (*session.Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if r.dailyKey(existing.LearnerID, existing.Subject, existing.Date) == r.dailyKey(s.LearnerID, s.Subject, s.Date) {
			return existing, false, nil
		}
	}
	r.byID[s.ID] = s
	return s, true, nil
}

func (r *memSessions) GetByID(ctx context.Context, id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	return s, nil
}

func (r *memSessions) FindDaily(ctx context.Context, learnerID string, subject session.Subject, date shared.DateKey) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if r.dailyKey(s.LearnerID, s.Subject, s.Date) == r.dailyKey(learnerID, subject, date) {
			return s, nil
		}
	}
	return nil, shared.ErrSessionNotFound
}

func (r *memSessions) Start(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return false, shared.ErrSessionNotFound
	}
	if s.Status != session.StatusPlanned {
		return false, nil
	}
	s.Status = session.StatusActive
	return true, nil
}

func (r *memSessions) UpdateActivity(ctx context.Context, s *session.Session, act *session.Activity, expectedCurrent session.ActivityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; !ok {
		return shared.ErrSessionNotFound
	}
	r.byID[s.ID] = s
	return nil
}

type memUsage struct {
	mu     sync.Mutex
	limits map[string]*tenant.Limits
	counts map[string]int
}

func (r *memUsage) GetLimits(ctx context.Context, tenantID string) (*tenant.Limits, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limits[tenantID]; ok {
		return l, nil
	}
	return tenant.Unlimited(tenantID), nil
}

func (r *memUsage) PutLimits(ctx context.Context, l *tenant.Limits) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[l.TenantID] = l
	return nil
}

func (r *memUsage) GetUsage(ctx context.Context, tenantID string, date shared.DateKey) (*tenant.Usage, error) {
	return &tenant.Usage{TenantID: tenantID, Date: date}, nil
}

func (r *memUsage) ReserveUsage(ctx context.Context, tenantID string, date shared.DateKey, m tenant.Metric, amount int, limit *int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tenantID + "|" + string(date) + "|" + string(m)
	current := r.counts[key]
	if limit != nil && current >= *limit {
		return current, false, nil
	}
	r.counts[key] = current + amount
	return current + amount, true, nil
}

type memAdmission struct {
	sessions *memSessions
	usage    *memUsage
}

func (a *memAdmission) CreateSessionAdmitted(ctx context.Context, s *session.Session, m tenant.Metric, amount int, limit *int) (*session.Session, bool, int, bool, error) {
	if existing, err := a.sessions.FindDaily(ctx, s.LearnerID, s.Subject, s.Date); err == nil {
		return existing, false, 0, true, nil
	}
	used, admitted, err := a.usage.ReserveUsage(ctx, s.TenantID, s.Date, m, amount, limit)
	if err != nil || !admitted {
		return nil, false, used, admitted, err
	}
	out, created, err := a.sessions.CreateOrGet(ctx, s)
	if err != nil {
		return nil, false, used, true, err
	}
	return out, created, used, true, nil
}

type memProposals struct {
	mu   sync.Mutex
	byID map[string]*proposal.Proposal
}

func (r *memProposals) Create(ctx context.Context, p *proposal.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memProposals) GetByID(ctx context.Context, id string) (*proposal.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrProposalNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProposals) Decide(ctx context.Context, p *proposal.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[p.ID]
	if !ok {
		return shared.ErrProposalNotFound
	}
	if stored.Status != proposal.StatusPending {
		return shared.ErrProposalAlreadyDecided
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memProposals) ListByLearner(ctx context.Context, tenantID, learnerID string) ([]*proposal.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*proposal.Proposal
	for _, p := range r.byID {
		if p.TenantID == tenantID && p.LearnerID == learnerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memProposals) ListByTenant(ctx context.Context, tenantID string) ([]*proposal.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*proposal.Proposal
	for _, p := range r.byID {
		if p.TenantID == tenantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memNotifications struct {
	mu   sync.Mutex
	byID map[string]*notification.Notification
}

func (r *memNotifications) Create(ctx context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.byID[n.ID] = &cp
	return nil
}

func (r *memNotifications) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *memNotifications) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotificationNotFound
	}
	n.MarkRead(time.Now())
	cp := *n
	return &cp, nil
}

func (r *memNotifications) ListByRecipient(ctx context.Context, tenantID, recipientUserID string) ([]*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.byID {
		if n.TenantID == tenantID && n.RecipientUserID == recipientUserID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

type stubProfiles struct {
	level proposal.GradeLevel
	err   error
}

func (s stubProfiles) CurrentGradeLevel(ctx context.Context, tenantID, learnerID, subject string) (proposal.GradeLevel, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.level, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// HARNESS
// ──────────────────────────────────────────────────────────────────────────────

type testEnv struct {
	server        *Server
	sessions      *memSessions
	usage         *memUsage
	proposals     *memProposals
	notifications *memNotifications
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.Default()
	ids := &seqIDs{}

	sessions := &memSessions{byID: make(map[string]*session.Session)}
	usage := &memUsage{limits: make(map[string]*tenant.Limits), counts: make(map[string]int)}
	proposals := &memProposals{byID: make(map[string]*proposal.Proposal)}
	notifications := &memNotifications{byID: make(map[string]*notification.Notification)}

	gate := admission.NewGate(usage, &memAdmission{sessions: sessions, usage: usage}, nil, log)
	fan := fanout.New(notifications, fanout.StaticResolver{RecipientUserID: "caregiver-1"}, ids, nil, log)

	secretHash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0

	srv := NewServer(cfg, Dependencies{
		StartSession:         command.NewStartSessionHandler(sessions, gate, ids, log),
		UpdateActivity:       command.NewUpdateActivityHandler(sessions, fan, log),
		CreateProposal:       command.NewCreateProposalHandler(proposals, stubProfiles{level: 4}, gate, fan, ids, log),
		DecideProposal:       command.NewDecideProposalHandler(proposals, log),
		MarkNotificationRead: command.NewMarkNotificationReadHandler(notifications, log),
		GetTodaySession:      query.NewGetTodaySessionHandler(sessions),
		ListProposals:        query.NewListProposalsHandler(proposals),
		ListNotifications:    query.NewListNotificationsHandler(notifications),
		Authenticator: NewAuthenticator(AuthConfig{
			JWTSecret: testJWTSecret,
			ServiceKeys: map[string]ServiceKey{
				"orchestrator": {Name: "orchestrator", SecretHash: string(secretHash)},
			},
		}, log),
		Logger: log,
	})

	return &testEnv{
		server:        srv,
		sessions:      sessions,
		usage:         usage,
		proposals:     proposals,
		notifications: notifications,
	}
}

func signToken(t *testing.T, userID, tenantID string, roles ...string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"tid":   tenantID,
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func dataMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := decodeEnvelope(t, rec)
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "expected object data, got %T", resp.Data)
	return m
}

// ──────────────────────────────────────────────────────────────────────────────
// AUTHENTICATION
// ──────────────────────────────────────────────────────────────────────────────

func TestRequestsWithoutCredentialsAreRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/start", "", map[string]string{"subject": "math"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unauthenticated", resp.Error.Code)
}

func TestForgedTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "learner-1", "tid": "tenant-a", "roles": []string{"learner"},
	})
	forged, err := token.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/start", forged, map[string]string{"subject": "math"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServiceKeyAuthentication(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/difficulty/proposals", nil)
	req.Header.Set("X-API-Key", "orchestrator.s3cret")
	req.Header.Set("X-Tenant-ID", "tenant-a")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Wrong secret is rejected.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/difficulty/proposals", nil)
	req.Header.Set("X-API-Key", "orchestrator.wrong")
	req.Header.Set("X-Tenant-ID", "tenant-a")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Missing tenant scope is rejected.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/difficulty/proposals", nil)
	req.Header.Set("X-API-Key", "orchestrator.s3cret")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleWithoutCapabilityIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	caregiver := signToken(t, "caregiver-1", "tenant-a", "caregiver")

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/start", caregiver, map[string]string{"subject": "math"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "forbidden", resp.Error.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// SESSION LIFECYCLE
// ──────────────────────────────────────────────────────────────────────────────

func TestStartSessionCreatesThenResumes(t *testing.T) {
	env := newTestEnv(t)
	learner := signToken(t, "learner-1", "tenant-a", "learner")

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/start", learner, map[string]string{"subject": "math"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := dataMap(t, rec)
	sessionID := data["id"].(string)
	assert.Equal(t, "active", data["status"])
	assert.Equal(t, "learner-1", data["learner_id"])
	assert.Len(t, data["activities"], 4)

	// Second start of the same day resumes, no new session.
	rec = env.do(t, http.MethodPost, "/api/v1/sessions/start", learner, map[string]string{"subject": "math"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionID, dataMap(t, rec)["id"])
}

func TestStartSessionQuotaExhausted(t *testing.T) {
	env := newTestEnv(t)
	zero := 0
	env.usage.limits["tenant-a"] = &tenant.Limits{TenantID: "tenant-a", MaxDailyTutorTurns: &zero}

	learner := signToken(t, "learner-1", "tenant-a", "learner")
	rec := env.do(t, http.MethodPost, "/api/v1/sessions/start", learner, map[string]string{"subject": "math"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "quota_exceeded", resp.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestGetTodaySessionMissingIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	learner := signToken(t, "learner-1", "tenant-a", "learner")

	rec := env.do(t, http.MethodGet, "/api/v1/sessions/today?subject=math", learner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLearnerCannotActOnAnotherLearner(t *testing.T) {
	env := newTestEnv(t)
	learner := signToken(t, "learner-1", "tenant-a", "learner")

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/start", learner,
		map[string]string{"subject": "math", "learner_id": "learner-2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateActivityForwardThenConflict(t *testing.T) {
	env := newTestEnv(t)
	learner := signToken(t, "learner-1", "tenant-a", "learner")

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/start", learner, map[string]string{"subject": "math"})
	require.Equal(t, http.StatusCreated, rec.Code)
	data := dataMap(t, rec)
	sessionID := data["id"].(string)
	first := data["activities"].([]interface{})[0].(map[string]interface{})
	activityID := first["id"].(string)

	path := fmt.Sprintf("/api/v1/sessions/%s/activities/%s", sessionID, activityID)

	rec = env.do(t, http.MethodPatch, path, learner, map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Backward transition is a conflict.
	rec = env.do(t, http.MethodPatch, path, learner, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPatch, path, learner, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, path, learner, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// PROPOSALS
// ──────────────────────────────────────────────────────────────────────────────

func TestProposalCreateAndDecideFlow(t *testing.T) {
	env := newTestEnv(t)
	teacher := signToken(t, "teacher-1", "tenant-a", "teacher")
	caregiver := signToken(t, "caregiver-1", "tenant-a", "caregiver")

	rec := env.do(t, http.MethodPost, "/api/v1/difficulty/proposals", teacher, map[string]interface{}{
		"learner_id": "learner-1",
		"subject":    "math",
		"to_level":   5,
		"rationale":  "consistent mastery at current level",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := dataMap(t, rec)
	proposalID := data["id"].(string)
	assert.Equal(t, float64(4), data["from_level"])
	assert.Equal(t, "harder", data["direction"])
	assert.Equal(t, "pending", data["status"])

	// Caregiver approves.
	decisionPath := "/api/v1/difficulty/proposals/" + proposalID + "/decision"
	rec = env.do(t, http.MethodPost, decisionPath, caregiver, map[string]interface{}{
		"approve": true,
		"notes":   "go ahead",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decided := dataMap(t, rec)
	assert.Equal(t, "approved", decided["status"])
	assert.Equal(t, "caregiver-1", decided["decided_by"])

	// Second decision conflicts.
	rec = env.do(t, http.MethodPost, decisionPath, caregiver, map[string]interface{}{"approve": false})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Teacher cannot decide.
	rec = env.do(t, http.MethodPost, decisionPath, teacher, map[string]interface{}{"approve": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListProposalsFiltersByLearner(t *testing.T) {
	env := newTestEnv(t)
	teacher := signToken(t, "teacher-1", "tenant-a", "teacher")

	for _, learner := range []string{"learner-1", "learner-2"} {
		rec := env.do(t, http.MethodPost, "/api/v1/difficulty/proposals", teacher, map[string]interface{}{
			"learner_id": learner,
			"subject":    "math",
			"to_level":   5,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/difficulty/proposals?learner_id=learner-1", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	items, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.TotalCount)
}

// ──────────────────────────────────────────────────────────────────────────────
// NOTIFICATIONS
// ──────────────────────────────────────────────────────────────────────────────

func TestNotificationsListAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	teacher := signToken(t, "teacher-1", "tenant-a", "teacher")
	caregiver := signToken(t, "caregiver-1", "tenant-a", "caregiver")

	rec := env.do(t, http.MethodPost, "/api/v1/difficulty/proposals", teacher, map[string]interface{}{
		"learner_id": "learner-1",
		"subject":    "math",
		"to_level":   5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/caregiver/notifications?unread_only=true", caregiver, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	items, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	notif := items[0].(map[string]interface{})
	assert.Equal(t, "unread", notif["status"])
	notifID := notif["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/v1/caregiver/notifications/"+notifID+"/read", caregiver, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "read", dataMap(t, rec)["status"])

	// Unread filter no longer returns it.
	rec = env.do(t, http.MethodGet, "/api/v1/caregiver/notifications?unread_only=true", caregiver, nil)
	resp = decodeEnvelope(t, rec)
	items, _ = resp.Data.([]interface{})
	assert.Empty(t, items)

	// A different caregiver probing the ID sees a 404, not a 403.
	other := signToken(t, "caregiver-2", "tenant-a", "caregiver")
	rec = env.do(t, http.MethodPost, "/api/v1/caregiver/notifications/"+notifID+"/read", other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// HEALTH
// ──────────────────────────────────────────────────────────────────────────────

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealthEndpointReportsComponents(t *testing.T) {
	env := newTestEnv(t)
	env.server.deps.Database = stubPinger{}
	env.server.deps.Cache = stubPinger{err: fmt.Errorf("connection refused")}

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	data := dataMap(t, rec)
	assert.Equal(t, "degraded", data["status"])
}

func TestLiveEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
