package service

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"transitadmin/internal/activity"
	"transitadmin/internal/config"
	"transitadmin/internal/models"
	"transitadmin/internal/repository"
	"transitadmin/internal/security"
	"transitadmin/internal/store"
)

const testPepper = "test-pepper"

type fixture struct {
	now time.Time

	users         *repository.UserRepository
	verifications *repository.VerificationRepository
	vehicleTypes  *repository.VehicleTypeRepository
	sessions      *repository.SessionRepository

	verify   *VerificationService
	accounts *AccountService
	types    *VehicleTypeService
	fleet    *FleetService
	auth     *AuthService
	hasher   *security.PasswordHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	adapter := store.NewMemoryAdapter()
	log := zerolog.Nop()
	f := &fixture{
		now:           time.Now().UTC().Truncate(time.Second),
		users:         repository.NewUserRepository(adapter),
		verifications: repository.NewVerificationRepository(adapter),
		vehicleTypes:  repository.NewVehicleTypeRepository(adapter),
		sessions:      repository.NewSessionRepository(adapter),
		hasher:        security.NewPasswordHasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1}),
	}
	clock := func() time.Time { return f.now }
	var activityLog activity.Log = activity.Nop{}

	f.verify = NewVerificationService(f.verifications, activityLog, nil, config.VerificationConfig{ValidityYears: 1}, log)
	f.verify.now = clock

	keys := security.NewKeyGenerator(rand.New(rand.NewPCG(7, 11)))
	f.accounts = NewAccountService(f.users, f.vehicleTypes, keys, testPepper, config.AccountsConfig{MaxFleetSize: 50}, activityLog, nil, log)
	f.accounts.now = clock

	f.types = NewVehicleTypeService(f.vehicleTypes, activityLog, log)
	f.types.now = clock

	f.fleet = NewFleetService(repository.NewVehicleRepository(adapter), f.accounts, log)
	f.fleet.now = clock

	tokens := security.NewTokenIssuer("jwt-secret", "transit-admin", time.Hour)
	f.auth = NewAuthService(f.users, f.sessions, f.hasher, tokens, testPepper, activityLog, log)
	f.auth.now = clock

	return f
}

func (f *fixture) seedVerifications(t *testing.T, items ...models.Verification) {
	t.Helper()
	for _, v := range items {
		if v.Timestamp.IsZero() {
			v.Timestamp = f.now
		}
		require.NoError(t, f.verifications.Create(context.Background(), v))
	}
}

func (f *fixture) seedVehicleTypes(t *testing.T) {
	t.Helper()
	_, err := f.types.Initialize(context.Background())
	require.NoError(t, err)
}

func (f *fixture) get(t *testing.T, id string) models.Verification {
	t.Helper()
	v, err := f.verify.Get(context.Background(), id)
	require.NoError(t, err)
	return v
}

func ptr[T any](v T) *T {
	return &v
}
