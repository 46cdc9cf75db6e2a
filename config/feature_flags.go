package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages runtime toggles for workflow behavior. Rollout is
// bucketed per tenant, not per user, so a whole district observes consistent
// behavior while a flag ramps up.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for support/debugging)
	tenantOverrides map[string]map[string]bool // tenantID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100). Tenants are assigned by hash.
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	TenantID string
	UserID   string
	IsAdmin  bool
}

// Predefined feature flag names.
const (
	// === Admission ===
	FeatureQuotaEnforcement  = "admission.enforce_quotas"     // Deny reservations past tenant limits
	FeatureNearLimitAdvisory = "admission.near_limit_advisory" // Emit near-limit telemetry

	// === Notification fan-out ===
	FeatureCaregiverFanout        = "fanout.caregiver_notifications" // Proposal-created notifications
	FeatureSessionCompletedFanout = "fanout.session_completed"       // Session-completed notifications

	// === Brain profile ===
	FeatureProfileCache = "profile.cache" // Read-through Redis cache over the profile client

	// === Proposals ===
	FeatureProposalMetering = "proposal.llm_metering" // Charge proposal creation to llm-call quota

	// === HTTP ===
	FeatureHTTPRateLimit = "http.rate_limit" // Per-caller request throttling
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:        make(map[string]*Feature),
		tenantOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureQuotaEnforcement] = &Feature{
		Name:           FeatureQuotaEnforcement,
		Description:    "Deny usage reservations past configured tenant limits",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNearLimitAdvisory] = &Feature{
		Name:           FeatureNearLimitAdvisory,
		Description:    "Emit advisory telemetry as tenants approach their limits",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureCaregiverFanout] = &Feature{
		Name:           FeatureCaregiverFanout,
		Description:    "Create caregiver notifications when proposals are created",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSessionCompletedFanout] = &Feature{
		Name:           FeatureSessionCompletedFanout,
		Description:    "Create caregiver notifications when sessions complete",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProfileCache] = &Feature{
		Name:           FeatureProfileCache,
		Description:    "Cache brain profile grade levels in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProposalMetering] = &Feature{
		Name:           FeatureProposalMetering,
		Description:    "Charge proposal creation against the llm-call quota",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureHTTPRateLimit] = &Feature{
		Name:           FeatureHTTPRateLimit,
		Description:    "Throttle requests per caller",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_ADMISSION_ENFORCE_QUOTAS=false
// Example: FEATURE_PROFILE_CACHE=50 (50% tenant rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "admission.enforce_quotas" -> "FEATURE_ADMISSION_ENFORCE_QUOTAS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check tenant overrides first
	if ctx != nil && ctx.TenantID != "" {
		if overrides, ok := ff.tenantOverrides[ctx.TenantID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.TenantID != "" {
		return ff.isInRollout(ctx.TenantID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a tenant is in the rollout percentage.
// Uses consistent hashing so tenants stay in their bucket.
func (ff *FeatureFlags) isInRollout(tenantID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(tenantID))
	hash := h.Sum32()

	bucket := int(hash % 100)
	return bucket < percent
}

// SetTenantOverride sets a feature override for a specific tenant.
func (ff *FeatureFlags) SetTenantOverride(tenantID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.tenantOverrides[tenantID]; !ok {
		ff.tenantOverrides[tenantID] = make(map[string]bool)
	}
	ff.tenantOverrides[tenantID][featureName] = enabled
}

// ClearTenantOverride removes a tenant's override for a feature.
func (ff *FeatureFlags) ClearTenantOverride(tenantID, featureName string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if overrides, ok := ff.tenantOverrides[tenantID]; ok {
		delete(overrides, featureName)
	}
}

// List returns a snapshot of all features.
func (ff *FeatureFlags) List() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	return out
}
