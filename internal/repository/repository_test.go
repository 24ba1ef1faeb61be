package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitadmin/internal/models"
	"transitadmin/internal/store"
)

func TestUserRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(store.NewMemoryAdapter())

	require.NoError(t, repo.Create(ctx,
		models.User{ID: "u1", Name: "Admin", Email: "Admin@Example.com"},
		models.User{ID: "u2", Name: "Driver", Username: "MET2512345"},
	))

	u, err := repo.FindByEmail(ctx, " admin@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u, err = repo.FindByUsername(ctx, "met2512345")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)

	_, err = repo.FindByEmail(ctx, "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestVerificationRepositoryUpdateByID(t *testing.T) {
	ctx := context.Background()
	adapter := store.NewMemoryAdapter()
	repo := NewVerificationRepository(adapter)

	require.NoError(t, repo.Create(ctx, models.Verification{ID: "v1", Status: models.VerificationStatusPending}))

	ok, err := repo.UpdateByID(ctx, "v1", func(v *models.Verification) bool {
		v.Status = models.VerificationStatusValid
		return true
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateByID(ctx, "v1", func(v *models.Verification) bool {
		v.Status = models.VerificationStatusRejected
		return false
	})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusValid, got.Status, "declined change is not written")

	ok, err = repo.UpdateByID(ctx, "nope", func(*models.Verification) bool { return true })
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVehicleTypeRepositorySeedAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewVehicleTypeRepository(store.NewMemoryAdapter())
	now := time.Now()

	seeded, err := repo.SeedIfEmpty(ctx, []models.VehicleType{{ID: "vt1", CreatedAt: now}, {ID: "vt2", CreatedAt: now}})
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = repo.SeedIfEmpty(ctx, []models.VehicleType{{ID: "vt9"}})
	require.NoError(t, err)
	assert.False(t, seeded)

	deleted, err := repo.DeleteByID(ctx, "vt1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByID(ctx, "vt1")
	require.NoError(t, err)
	assert.False(t, deleted)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "vt2", items[0].ID)
}

func TestVehicleRepositorySave(t *testing.T) {
	ctx := context.Background()
	repo := NewVehicleRepository(store.NewMemoryAdapter())

	require.NoError(t, repo.Save(ctx, models.Vehicle{ID: "bus1", OrganizationID: "org1", LicensePlate: "ABC-123"}))
	require.NoError(t, repo.Save(ctx, models.Vehicle{ID: "van1", OrganizationID: "org2"}))
	require.NoError(t, repo.Save(ctx, models.Vehicle{ID: "bus1", OrganizationID: "org1", LicensePlate: "XYZ-789"}))

	fleet, err := repo.ListByOrganization(ctx, "org1")
	require.NoError(t, err)
	require.Len(t, fleet, 1)
	assert.Equal(t, "XYZ-789", fleet[0].LicensePlate)
}
