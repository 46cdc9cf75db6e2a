// Package identity models the caller identity decoded from request
// credentials: user, tenant, and roles, plus the single capability predicate
// every operation checks before acting.
package identity

import (
	"context"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
)

// Role is a coarse permission group assigned within a tenant.
type Role string

const (
	RoleLearner       Role = "learner"
	RoleCaregiver     Role = "caregiver"
	RoleTeacher       Role = "teacher"
	RoleDistrictAdmin Role = "district_admin"
	// RoleService is granted to machine callers, e.g. downstream
	// content-orchestration services reading session state.
	RoleService Role = "service"
)

// IsValid checks that the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleLearner, RoleCaregiver, RoleTeacher, RoleDistrictAdmin, RoleService:
		return true
	default:
		return false
	}
}

// Claims is the verified identity of a caller.
type Claims struct {
	UserID   string
	TenantID string
	Roles    []Role
}

// HasRole reports whether the caller carries the given role.
func (c Claims) HasRole(r Role) bool {
	for _, have := range c.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Capability is a set of roles allowed to perform an operation. Modeling
// authorization as one reusable predicate keeps per-route checks uniform
// instead of scattering ad hoc conditionals.
type Capability struct {
	Name  string
	Roles []Role
}

// Capabilities guarding the workflow operations.
var (
	CapStartSession = Capability{
		Name:  "session.start",
		Roles: []Role{RoleLearner, RoleTeacher, RoleDistrictAdmin},
	}
	CapReadSession = Capability{
		Name:  "session.read",
		Roles: []Role{RoleLearner, RoleCaregiver, RoleTeacher, RoleDistrictAdmin, RoleService},
	}
	CapUpdateActivity = Capability{
		Name:  "session.update_activity",
		Roles: []Role{RoleLearner, RoleTeacher, RoleDistrictAdmin},
	}
	CapCreateProposal = Capability{
		Name:  "proposal.create",
		Roles: []Role{RoleTeacher, RoleDistrictAdmin, RoleService},
	}
	CapReadProposals = Capability{
		Name:  "proposal.read",
		Roles: []Role{RoleCaregiver, RoleTeacher, RoleDistrictAdmin, RoleService},
	}
	CapDecideProposal = Capability{
		Name:  "proposal.decide",
		Roles: []Role{RoleCaregiver, RoleDistrictAdmin},
	}
	CapReadNotifications = Capability{
		Name:  "notification.read",
		Roles: []Role{RoleCaregiver, RoleTeacher, RoleDistrictAdmin},
	}
)

// Can reports whether the caller holds any role the capability allows.
func (c Claims) Can(cap Capability) bool {
	for _, allowed := range cap.Roles {
		if c.HasRole(allowed) {
			return true
		}
	}
	return false
}

// Require returns ErrForbidden unless the caller holds the capability.
func (c Claims) Require(cap Capability) error {
	if c.Can(cap) {
		return nil
	}
	return shared.NewDomainError("identity", "Require", shared.ErrForbidden, "missing capability "+cap.Name)
}

// ctxKey is the context key type for claims propagation.
type ctxKey struct{}

// WithClaims attaches verified claims to the context.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext extracts the verified claims from the context.
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(Claims)
	return c, ok
}
