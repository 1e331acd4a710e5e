package memory

import (
	"time"

	"ai-docguard-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SessionStateRepository caches derived session states. Artifacts on disk stay authoritative.
type SessionStateRepository struct {
	cache *cache.Cache
}

func NewSessionStateRepository(ttl time.Duration) *SessionStateRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStateRepository{cache: cache.New(ttl, ttl/6)}
}

func (r *SessionStateRepository) Save(sessionID string, state entity.SessionState) {
	r.cache.Set(sessionID, state, cache.DefaultExpiration)
}

func (r *SessionStateRepository) Get(sessionID string) (entity.SessionState, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(entity.SessionState), true
	}
	return "", false
}

func (r *SessionStateRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
