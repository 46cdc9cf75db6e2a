package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/artpromedia/aivo-v5-sub002/internal/application/command"
	"github.com/artpromedia/aivo-v5-sub002/internal/application/query"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/identity"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/notification"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/session"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// maxBodyBytes caps request bodies; every write payload here is tiny.
const maxBodyBytes = 64 << 10

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthStatus struct {
	Status     string                     `json:"status"`
	Uptime     string                     `json:"uptime"`
	Components map[string]componentHealth `json:"components"`
}

// handleHealth reports aggregate health. The cache is optional equipment:
// a Redis outage degrades the report but does not fail it, because every
// read path has a database fallback.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := healthStatus{
		Status:     "ok",
		Uptime:     s.Uptime().Round(time.Second).String(),
		Components: make(map[string]componentHealth),
	}

	if s.deps.Database != nil {
		if err := s.deps.Database.Ping(ctx); err != nil {
			status.Status = "unhealthy"
			status.Components["database"] = componentHealth{Status: "down", Error: err.Error()}
		} else {
			status.Components["database"] = componentHealth{Status: "up"}
		}
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Ping(ctx); err != nil {
			if status.Status == "ok" {
				status.Status = "degraded"
			}
			status.Components["cache"] = componentHealth{Status: "down", Error: err.Error()}
		} else {
			status.Components["cache"] = componentHealth{Status: "up"}
		}
	}

	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

// handleReady reports readiness to take traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.deps.Database != nil {
		if err := s.deps.Database.Ping(ctx); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "database unavailable")
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive reports process liveness.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type startSessionRequest struct {
	LearnerID string `json:"learner_id,omitempty"`
	Subject   string `json:"subject"`
	Date      string `json:"date,omitempty"`
}

// handleStartSession creates or resumes the learner's daily session.
// Returns 201 when this call created the session, 200 when it resumed one.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := claims.Require(identity.CapStartSession); err != nil {
		writeDomainError(w, err)
		return
	}

	var req startSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	learnerID, err := resolveLearner(claims, req.LearnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	date := shared.DateKey(req.Date)
	if req.Date == "" {
		date = shared.Today()
	}

	result, err := s.deps.StartSession.Handle(r.Context(), command.StartSessionCommand{
		LearnerID: learnerID,
		TenantID:  claims.TenantID,
		Subject:   session.Subject(req.Subject),
		Date:      date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	writeJSON(w, r, code, toSessionDTO(result.Session))
}

// handleGetTodaySession returns the learner's session for the given day.
func (s *Server) handleGetTodaySession(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := claims.Require(identity.CapReadSession); err != nil {
		writeDomainError(w, err)
		return
	}

	learnerID, err := resolveLearner(claims, r.URL.Query().Get("learner_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	date := shared.DateKey(r.URL.Query().Get("date"))
	if date == "" {
		date = shared.Today()
	}

	sess, err := s.deps.GetTodaySession.Handle(r.Context(), query.GetTodaySessionQuery{
		LearnerID: learnerID,
		TenantID:  claims.TenantID,
		Subject:   session.Subject(r.URL.Query().Get("subject")),
		Date:      date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if sess == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "no session for this day")
		return
	}

	writeJSON(w, r, http.StatusOK, toSessionDTO(sess))
}

type updateActivityRequest struct {
	Status string `json:"status"`
}

// handleUpdateActivity moves one activity forward in its state machine.
func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := claims.Require(identity.CapUpdateActivity); err != nil {
		writeDomainError(w, err)
		return
	}

	var req updateActivityRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.deps.UpdateActivity.Handle(r.Context(), command.UpdateActivityCommand{
		SessionID:  r.PathValue("id"),
		ActivityID: r.PathValue("activityID"),
		TenantID:   claims.TenantID,
		Requested:  session.ActivityStatus(req.Status),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toSessionDTO(result.Session))
}

// ══════════════════════════════════════════════════════════════════════════════
// PROPOSAL HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createProposalRequest struct {
	LearnerID string `json:"learner_id"`
	Subject   string `json:"subject"`
	ToLevel   int    `json:"to_level"`
	Rationale string `json:"rationale,omitempty"`
}

// handleCreateProposal creates a difficulty change proposal.
func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := claims.Require(identity.CapCreateProposal); err != nil {
		writeDomainError(w, err)
		return
	}

	var req createProposalRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.deps.CreateProposal.Handle(r.Context(), command.CreateProposalCommand{
		LearnerID: req.LearnerID,
		TenantID:  claims.TenantID,
		Subject:   req.Subject,
		ToLevel:   proposal.GradeLevel(req.ToLevel),
		Rationale: req.Rationale,
		CreatedBy: claims.UserID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusCreated, toProposalDTO(result.Proposal), &ResponseMeta{
		Degradations: result.Degradations,
	})
}

// handleListProposals lists proposals within the caller's tenant.
func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := claims.Require(identity.CapReadProposals); err != nil {
		writeDomainError(w, err)
		return
	}

	proposals, err := s.deps.ListProposals.Handle(r.Context(), query.ListProposalsQuery{
		TenantID:  claims.TenantID,
		LearnerID: r.URL.Query().Get("learner_id"),
		Status:    proposal.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]proposalDTO, 0, len(proposals))
	for _, p := range proposals {
		dtos = append(dtos, toProposalDTO(p))
	}
	writeJSONWithMeta(w, r, http.StatusOK, dtos, &ResponseMeta{TotalCount: len(dtos)})
}

type decideProposalRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes,omitempty"`
}

// handleDecideProposal applies the caregiver's single-shot decision.
func (s *Server) handleDecideProposal(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := claims.Require(identity.CapDecideProposal); err != nil {
		writeDomainError(w, err)
		return
	}

	var req decideProposalRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	decided, err := s.deps.DecideProposal.Handle(r.Context(), command.DecideProposalCommand{
		ProposalID: r.PathValue("id"),
		TenantID:   claims.TenantID,
		Approve:    req.Approve,
		DecidedBy:  claims.UserID,
		Notes:      req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toProposalDTO(decided))
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListNotifications lists the caller's notifications, newest first.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := claims.Require(identity.CapReadNotifications); err != nil {
		writeDomainError(w, err)
		return
	}

	notifications, err := s.deps.ListNotifications.Handle(r.Context(), query.ListNotificationsQuery{
		TenantID:        claims.TenantID,
		RecipientUserID: claims.UserID,
		UnreadOnly:      r.URL.Query().Get("unread_only") == "true",
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]notificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, toNotificationDTO(n))
	}
	writeJSONWithMeta(w, r, http.StatusOK, dtos, &ResponseMeta{TotalCount: len(dtos)})
}

// handleMarkNotificationRead acknowledges one notification.
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFrom(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := claims.Require(identity.CapReadNotifications); err != nil {
		writeDomainError(w, err)
		return
	}

	read, err := s.deps.MarkNotificationRead.Handle(r.Context(), command.MarkNotificationReadCommand{
		NotificationID:  r.PathValue("id"),
		RecipientUserID: claims.UserID,
		TenantID:        claims.TenantID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toNotificationDTO(read))
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body with a size cap.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return shared.WrapError("http", "Decode", shared.ErrInvalidInput, "malformed request body", err)
	}
	return nil
}

// resolveLearner decides which learner a request acts on. Learners always
// act on themselves; staff roles must name the learner explicitly.
func resolveLearner(claims identity.Claims, requested string) (string, error) {
	if claims.HasRole(identity.RoleLearner) {
		if requested != "" && requested != claims.UserID {
			return "", shared.NewDomainError("http", "ResolveLearner", shared.ErrForbidden, "learners may only act on their own sessions")
		}
		return claims.UserID, nil
	}
	if requested == "" {
		return "", shared.NewDomainError("http", "ResolveLearner", shared.ErrInvalidInput, "learner_id is required")
	}
	return requested, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

type activityDTO struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	Title            string     `json:"title"`
	Instructions     string     `json:"instructions,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Status           string     `json:"status"`
	Position         int        `json:"position"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type sessionDTO struct {
	ID             string        `json:"id"`
	LearnerID      string        `json:"learner_id"`
	TenantID       string        `json:"tenant_id"`
	Subject        string        `json:"subject"`
	Date           string        `json:"date"`
	Status         string        `json:"status"`
	PlannedMinutes int           `json:"planned_minutes"`
	ActualMinutes  int           `json:"actual_minutes"`
	Activities     []activityDTO `json:"activities"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func toSessionDTO(s *session.Session) sessionDTO {
	activities := make([]activityDTO, 0, len(s.Activities))
	for _, a := range s.Activities {
		activities = append(activities, activityDTO{
			ID:               a.ID,
			Type:             string(a.Type),
			Title:            a.Title,
			Instructions:     a.Instructions,
			EstimatedMinutes: a.EstimatedMinutes,
			Status:           string(a.Status),
			Position:         a.Position,
			StartedAt:        a.StartedAt,
			CompletedAt:      a.CompletedAt,
		})
	}

	return sessionDTO{
		ID:             s.ID,
		LearnerID:      s.LearnerID,
		TenantID:       s.TenantID,
		Subject:        string(s.Subject),
		Date:           string(s.Date),
		Status:         string(s.Status),
		PlannedMinutes: s.PlannedMinutes,
		ActualMinutes:  s.ActualMinutes,
		Activities:     activities,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type proposalDTO struct {
	ID            string     `json:"id"`
	LearnerID     string     `json:"learner_id"`
	TenantID      string     `json:"tenant_id"`
	Subject       string     `json:"subject"`
	FromLevel     int        `json:"from_level"`
	ToLevel       int        `json:"to_level"`
	Direction     string     `json:"direction"`
	Rationale     string     `json:"rationale,omitempty"`
	CreatedBy     string     `json:"created_by"`
	Status        string     `json:"status"`
	DecidedBy     string     `json:"decided_by,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	DecisionNotes string     `json:"decision_notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toProposalDTO(p *proposal.Proposal) proposalDTO {
	return proposalDTO{
		ID:            p.ID,
		LearnerID:     p.LearnerID,
		TenantID:      p.TenantID,
		Subject:       p.Subject,
		FromLevel:     int(p.FromLevel),
		ToLevel:       int(p.ToLevel),
		Direction:     string(p.Direction),
		Rationale:     p.Rationale,
		CreatedBy:     p.CreatedBy,
		Status:        string(p.Status),
		DecidedBy:     p.DecidedBy,
		DecidedAt:     p.DecidedAt,
		DecisionNotes: p.DecisionNotes,
		CreatedAt:     p.CreatedAt,
	}
}

type notificationDTO struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	LearnerID         string     `json:"learner_id,omitempty"`
	RecipientUserID   string     `json:"recipient_user_id"`
	Audience          string     `json:"audience"`
	Type              string     `json:"type"`
	Title             string     `json:"title"`
	Body              string     `json:"body"`
	Status            string     `json:"status"`
	RelatedProposalID string     `json:"related_proposal_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
}

func toNotificationDTO(n *notification.Notification) notificationDTO {
	return notificationDTO{
		ID:                n.ID,
		TenantID:          n.TenantID,
		LearnerID:         n.LearnerID,
		RecipientUserID:   n.RecipientUserID,
		Audience:          string(n.Audience),
		Type:              string(n.Type),
		Title:             n.Title,
		Body:              n.Body,
		Status:            string(n.Status),
		RelatedProposalID: n.RelatedProposalID,
		CreatedAt:         n.CreatedAt,
		ReadAt:            n.ReadAt,
	}
}
