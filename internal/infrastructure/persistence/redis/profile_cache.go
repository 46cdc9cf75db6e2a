package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/proposal"
	"github.com/artpromedia/aivo-v5-sub002/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BRAIN PROFILE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ProfileSource reads the learner's current grade level from the upstream
// brain-profile service.
type ProfileSource interface {
	CurrentGradeLevel(ctx context.Context, tenantID, learnerID, subject string) (proposal.GradeLevel, error)
}

// cachedLevel is the stored cache entry.
type cachedLevel struct {
	GradeLevel int `json:"grade_level"`
}

// ProfileCache is a read-through cache in front of the brain-profile client.
// A cache failure degrades to a direct upstream read; it never fails the
// lookup on its own.
type ProfileCache struct {
	cache  *Cache
	source ProfileSource
	logger *logger.Logger
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(cache *Cache, source ProfileSource, log *logger.Logger) *ProfileCache {
	if log == nil {
		log = logger.Default()
	}
	return &ProfileCache{
		cache:  cache,
		source: source,
		logger: log.With(logger.Component("profile_cache")),
	}
}

func profileKey(tenantID, learnerID, subject string) string {
	return fmt.Sprintf("%s%s:%s:%s", PrefixProfile, tenantID, learnerID, subject)
}

// CurrentGradeLevel implements the brain-profile read with a read-through
// cache. Upstream errors are never cached.
func (p *ProfileCache) CurrentGradeLevel(ctx context.Context, tenantID, learnerID, subject string) (proposal.GradeLevel, error) {
	key := profileKey(tenantID, learnerID, subject)

	var entry cachedLevel
	err := p.cache.Get(ctx, key, &entry)
	if err == nil {
		level := proposal.GradeLevel(entry.GradeLevel)
		if level.IsValid() {
			return level, nil
		}
		// A corrupt entry falls through to the source.
	} else if !errors.Is(err, ErrCacheMiss) {
		p.logger.Warn("profile cache read failed, falling through",
			logger.LearnerID(learnerID),
			logger.Err(err),
		)
	}

	level, err := p.source.CurrentGradeLevel(ctx, tenantID, learnerID, subject)
	if err != nil {
		return 0, err
	}

	if cerr := p.cache.Set(ctx, key, cachedLevel{GradeLevel: int(level)}, TTLBrainProfile); cerr != nil {
		p.logger.Warn("profile cache write failed",
			logger.LearnerID(learnerID),
			logger.Err(cerr),
		)
	}
	return level, nil
}

// Invalidate drops the cached level, used when a proposal decision changes
// the learner's effective grade level.
func (p *ProfileCache) Invalidate(ctx context.Context, tenantID, learnerID, subject string) error {
	return p.cache.Delete(ctx, profileKey(tenantID, learnerID, subject))
}
