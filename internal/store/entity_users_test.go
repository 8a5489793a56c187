package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

func newTestUser(id, email string, communities ...string) *domain.User {
	now := time.Now()
	return &domain.User{
		ID:          id,
		Email:       email,
		Communities: communities,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestUsersEntity_Roundtrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser("usr_1", "test@example.com", "comm_1")
	require.NoError(t, s.Users.Create(ctx, user.ID, user))

	got, err := s.Users.Get(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, []string{"comm_1"}, got.Communities)
}

func TestUsersEntity_GetByEmail_CaseInsensitive(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser("usr_1", "Test@Example.com")
	require.NoError(t, s.Users.Create(ctx, user.ID, user))

	got, err := s.GetUserByEmail(ctx, "test@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "usr_1", got.ID)
}

func TestUsersEntity_EmailConflict(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.Users.Create(ctx, "usr_1", newTestUser("usr_1", "same@example.com")))

	err := s.Users.Create(ctx, "usr_2", newTestUser("usr_2", "SAME@example.com"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCommunitiesEntity_Roundtrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	comm := &domain.Community{
		ID:        "comm_1",
		Name:      "GSB Accelerate",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Communities.Create(ctx, comm.ID, comm))

	got, err := s.Communities.Get(ctx, "comm_1")
	require.NoError(t, err)
	assert.Equal(t, "GSB Accelerate", got.Name)
}
