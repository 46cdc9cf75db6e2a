package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/identity"
	"github.com/artpromedia/aivo-v5-sub002/internal/domain/shared"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// AuthConfig contains credentials verification settings.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret shared with the identity
	// service that issues user tokens.
	JWTSecret string

	// APIKeyHeader is the header carrying machine credentials.
	APIKeyHeader string

	// ServiceKeys are the accepted machine credentials, keyed by key ID.
	// Secrets are stored as bcrypt hashes, never in the clear.
	ServiceKeys map[string]ServiceKey
}

// ServiceKey is one machine caller's credential.
type ServiceKey struct {
	// Name identifies the calling service in logs.
	Name string

	// SecretHash is the bcrypt hash of the key secret.
	SecretHash string
}

// Authenticator verifies request credentials into identity claims. Two
// credential kinds are accepted: user JWTs on the Authorization header, and
// service API keys of the form "<key-id>.<secret>" on the API key header.
type Authenticator struct {
	config AuthConfig
	logger *logger.Logger
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(config AuthConfig, log *logger.Logger) *Authenticator {
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}
	if log == nil {
		log = logger.Default()
	}
	return &Authenticator{
		config: config,
		logger: log.With(logger.Component("auth")),
	}
}

// tokenClaims is the JWT payload issued by the identity service.
type tokenClaims struct {
	TenantID string   `json:"tid"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Authenticate verifies the request credentials and returns the caller's
// claims. Every failure collapses to ErrUnauthenticated; the distinction
// between a missing, expired, or forged credential is logged, not leaked.
func (a *Authenticator) Authenticate(r *http.Request) (identity.Claims, error) {
	if key := r.Header.Get(a.config.APIKeyHeader); key != "" {
		return a.authenticateServiceKey(r, key)
	}

	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return a.authenticateJWT(strings.TrimPrefix(authz, "Bearer "))
	}

	return identity.Claims{}, shared.ErrUnauthenticated
}

func (a *Authenticator) authenticateJWT(raw string) (identity.Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		a.logger.Debug("jwt verification failed", logger.Err(err))
		return identity.Claims{}, shared.ErrUnauthenticated
	}

	if claims.Subject == "" || claims.TenantID == "" {
		return identity.Claims{}, shared.ErrUnauthenticated
	}

	roles := make([]identity.Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		role := identity.Role(r)
		if role.IsValid() {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return identity.Claims{}, shared.ErrUnauthenticated
	}

	return identity.Claims{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Roles:    roles,
	}, nil
}

func (a *Authenticator) authenticateServiceKey(r *http.Request, raw string) (identity.Claims, error) {
	keyID, secret, found := strings.Cut(raw, ".")
	if !found {
		return identity.Claims{}, shared.ErrUnauthenticated
	}

	key, ok := a.config.ServiceKeys[keyID]
	if !ok {
		return identity.Claims{}, shared.ErrUnauthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
		a.logger.Warn("service key secret mismatch", logger.String("key_id", keyID))
		return identity.Claims{}, shared.ErrUnauthenticated
	}

	// Machine callers act within one tenant per request.
	tenantID := r.Header.Get("X-Tenant-ID")
	if tenantID == "" {
		return identity.Claims{}, shared.ErrUnauthenticated
	}

	return identity.Claims{
		UserID:   "svc:" + key.Name,
		TenantID: tenantID,
		Roles:    []identity.Role{identity.RoleService},
	}, nil
}

// authed wraps a handler with authentication. Verified claims travel on the
// request context; capability checks stay in the individual handlers because
// they differ per route.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Authenticator == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Authentication is not configured")
			return
		}

		claims, err := s.deps.Authenticator.Authenticate(r)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		next(w, r.WithContext(identity.WithClaims(r.Context(), claims)))
	}
}

// claimsFrom pulls verified claims off the context.
func claimsFrom(ctx context.Context) (identity.Claims, error) {
	claims, ok := identity.FromContext(ctx)
	if !ok {
		return identity.Claims{}, shared.ErrUnauthenticated
	}
	return claims, nil
}
