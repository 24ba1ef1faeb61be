package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitadmin/internal/errs"
	"transitadmin/internal/models"
)

func TestFleetSave(t *testing.T) {
	f := newFixture(t)
	f.seedVehicleTypes(t)
	ctx := context.Background()

	org, err := f.accounts.CreateOrganizationWithAccounts(ctx, orgInput("Metro Link", 1))
	require.NoError(t, err)

	v, err := f.fleet.Save(ctx, VehicleInput{Type: "vt1", LicensePlate: " abc 123 ", Capacity: 40, OrganizationID: org.Account.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "ABC 123", v.LicensePlate)
	assert.Equal(t, models.VehicleStatusActive, v.Status)
	created := v.CreatedAt

	f.now = f.now.Add(time.Hour)
	v, err = f.fleet.Save(ctx, VehicleInput{ID: v.ID, Type: "vt1", LicensePlate: "ABC 123", Capacity: 40, Status: models.VehicleStatusMaintenance, OrganizationID: org.Account.ID})
	require.NoError(t, err)
	assert.True(t, v.CreatedAt.Equal(created), "replacing keeps the original creation time")

	list, err := f.fleet.ListByOrganization(ctx, org.Account.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.VehicleStatusMaintenance, list[0].Status)
}

func TestFleetSaveRejects(t *testing.T) {
	f := newFixture(t)
	f.seedVehicleTypes(t)
	ctx := context.Background()

	_, err := f.fleet.Save(ctx, VehicleInput{})
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "licensePlate")
	assert.Contains(t, ve.Fields, "organizationId")

	_, err = f.fleet.Save(ctx, VehicleInput{Type: "vt1", LicensePlate: "X", Capacity: 1, OrganizationID: "missing"})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	org, err := f.accounts.CreateOrganizationWithAccounts(ctx, orgInput("Metro Link", 1))
	require.NoError(t, err)
	_, err = f.fleet.Save(ctx, VehicleInput{Type: "vt1", LicensePlate: "X", Capacity: 1, OrganizationID: org.SubAccounts[0].AccountID})
	assert.ErrorIs(t, err, errs.ErrInvalidOperation)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	f.seedVehicleTypes(t)
	ctx := context.Background()

	_, err := f.auth.EnsureAdmin(ctx, "admin@example.com", "admin123", "Admin User")
	require.NoError(t, err)
	org, err := f.accounts.CreateOrganizationWithAccounts(ctx, orgInput("Metro Link", 2))
	require.NoError(t, err)
	_, err = f.accounts.CreateAccount(ctx, AccountInput{
		Name:          "Juan Dela Cruz",
		AccountType:   models.AccountTypeIndividual,
		ServiceType:   models.ServiceTypeVan,
		ContactNumber: "09170000000",
		Vehicles:      []models.VehicleCount{{VehicleTypeID: "vt3", Count: 1}},
	})
	require.NoError(t, err)
	_, err = f.accounts.ToggleAccountStatus(ctx, org.SubAccounts[0].AccountID, models.UserStatusDisabled)
	require.NoError(t, err)

	f.seedVerifications(t,
		models.Verification{ID: "a", IDType: models.IDTypeStudent, Status: models.VerificationStatusPending},
		models.Verification{ID: "b", IDType: models.IDTypeSenior, Status: models.VerificationStatusValid},
	)

	stats, err := NewDashboardService(f.verify, f.accounts, f.types).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, AccountStats{Total: 4, Organizations: 1, Individuals: 1, SubAccounts: 2, Active: 3, Disabled: 1}, stats.Accounts)
	assert.Equal(t, 4, stats.VehicleTypes)
	assert.Equal(t, 3, stats.ActiveVehicleTypes)
	assert.Equal(t, 2, stats.Verifications.Total)
	assert.Equal(t, 1, stats.Verifications.Pending)
}
