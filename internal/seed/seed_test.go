package seed

import (
	"testing"

	"feedhub/internal/models"
	"feedhub/internal/repository"
	"feedhub/internal/service"
	"feedhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestSeeder(t *testing.T) (*Seeder, *service.CredentialService) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	creds := service.NewCredentialService("seed-test-secret-seed-test-secret-123", "feedhub-api", 0, bcrypt.MinCost)
	return NewSeeder(db, creds, 42), creds
}

func TestSeeder_Run(t *testing.T) {
	s, creds := newTestSeeder(t)
	ctx := t.Context()

	require.NoError(t, s.Run(ctx, Options{Users: 3, Posts: 7, MaxDays: 5}))

	var users []models.User
	require.NoError(t, s.db.Find(&users).Error)
	require.Len(t, users, 3)
	assert.True(t, creds.Verify(DefaultPassword, users[0].Password))

	var total int64
	require.NoError(t, s.db.Model(&models.Post{}).Count(&total).Error)
	assert.Equal(t, int64(7), total)

	// Round-robin ownership: 3 + 2 + 2.
	owner, err := repository.NewUserRepository(s.db).GetByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Len(t, owner.Posts, 3)
}

func TestSeeder_SeedPostsWithoutUsers(t *testing.T) {
	s, _ := newTestSeeder(t)

	posts, err := s.SeedPosts(t.Context(), nil, 5, 0)

	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSeeder_ClearAll(t *testing.T) {
	s, _ := newTestSeeder(t)
	ctx := t.Context()
	require.NoError(t, s.Run(ctx, Options{Users: 2, Posts: 2}))

	require.NoError(t, s.ClearAll(ctx))

	var users, posts, links int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, s.db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, s.db.Model(&models.UserPost{}).Count(&links).Error)
	assert.Zero(t, users+posts+links)
}
