package brainprofile

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ProfileDTO is the brain profile service's view of a learner in one subject.
type ProfileDTO struct {
	LearnerID  string    `json:"learner_id"`
	TenantID   string    `json:"tenant_id"`
	Subject    string    `json:"subject"`
	GradeLevel int       `json:"grade_level"`
	Confidence float64   `json:"confidence"`
	AssessedAt time.Time `json:"assessed_at"`
}

// APIErrorDTO is the error envelope returned by the profile service.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("brain profile api error: %s (%s)", e.Message, e.Code)
}
