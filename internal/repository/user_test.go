package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/utils"
)

func TestUserRepository_CreateFindByIDAndEmail(t *testing.T) {
	newTestDB(t)
	repo := NewUserRepository()
	ctx := context.Background()

	u := &models.User{
		ID:           utils.GenerateUUID(),
		Email:        "Owner@Example.com",
		Name:         "Owner",
		PasswordHash: "hashed",
		Role:         models.RoleAdmin,
	}
	require.NoError(t, repo.Create(ctx, u))

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Owner@Example.com", byID.Email)

	byEmail, err := repo.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestUserRepository_IncrementFailedLoginThenRecordLoginSuccessResets(t *testing.T) {
	newTestDB(t)
	repo := NewUserRepository()
	ctx := context.Background()

	u := &models.User{ID: utils.GenerateUUID(), Email: "a@b.com", PasswordHash: "x", Role: models.RoleViewer}
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.IncrementFailedLogin(ctx, u.ID))
	require.NoError(t, repo.IncrementFailedLogin(ctx, u.ID))

	mid, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, mid.FailedLoginAttempts)

	require.NoError(t, repo.RecordLoginSuccess(ctx, u.ID, "2026-01-01T00:00:00Z", "10.0.0.1"))

	after, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.FailedLoginAttempts)
	require.NotNil(t, after.LastLoginIP)
	assert.Equal(t, "10.0.0.1", *after.LastLoginIP)
}

func TestUserRepository_UpdatePartialFields(t *testing.T) {
	newTestDB(t)
	repo := NewUserRepository()
	ctx := context.Background()

	u := &models.User{ID: utils.GenerateUUID(), Email: "c@d.com", PasswordHash: "x", Role: models.RoleRep}
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.Update(ctx, u.ID, map[string]any{"is_active": false}))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, models.RoleRep, got.Role, "unmentioned fields must survive a partial update")
}
