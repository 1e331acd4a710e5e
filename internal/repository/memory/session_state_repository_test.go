package memory

import (
	"testing"
	"time"

	"ai-docguard-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestSessionStateRepository(t *testing.T) {
	repo := NewSessionStateRepository(time.Minute)

	_, ok := repo.Get("a")
	assert.False(t, ok)

	repo.Save("a", entity.SessionStateScanned)
	state, ok := repo.Get("a")
	assert.True(t, ok)
	assert.Equal(t, entity.SessionStateScanned, state)

	repo.Save("a", entity.SessionStateSummarized)
	state, _ = repo.Get("a")
	assert.Equal(t, entity.SessionStateSummarized, state)

	repo.Delete("a")
	_, ok = repo.Get("a")
	assert.False(t, ok)
}

func TestSessionStateRepositoryExpires(t *testing.T) {
	repo := NewSessionStateRepository(20 * time.Millisecond)
	repo.Save("a", entity.SessionStateCreated)

	assert.Eventually(t, func() bool {
		_, ok := repo.Get("a")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
