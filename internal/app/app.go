// Package app wires configuration into the persistence adapter, the shared
// clients and the service layer. Both binaries start from here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"transitadmin/internal/activity"
	"transitadmin/internal/cache"
	"transitadmin/internal/config"
	"transitadmin/internal/database"
	"transitadmin/internal/handlers"
	"transitadmin/internal/metrics"
	"transitadmin/internal/migrate"
	"transitadmin/internal/repository"
	"transitadmin/internal/security"
	"transitadmin/internal/service"
	"transitadmin/internal/storage"
	"transitadmin/internal/store"
)

type App struct {
	Config  *config.AppConfig
	Log     zerolog.Logger
	Store   store.Adapter
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Objects *storage.ObjectStore
	Metrics *metrics.Metrics

	Activity      activity.Log
	Auth          *service.AuthService
	Verifications *service.VerificationService
	Submissions   *service.SubmissionService
	Accounts      *service.AccountService
	VehicleTypes  *service.VehicleTypeService
	Fleet         *service.FleetService
	Dashboard     *service.DashboardService
}

// New connects everything cfg enables. On error, whatever was already
// opened is closed.
func New(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger, name string) (*App, error) {
	a := &App{Config: cfg, Log: log}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()
	var err error

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(reg)

	if cfg.RedisEnabled() {
		if a.Redis, err = cache.NewRedisClient(ctx, cfg.Redis); err != nil {
			return nil, err
		}
	}

	if a.Store, err = a.openStore(ctx, name); err != nil {
		return nil, err
	}

	a.Activity = activity.Nop{}
	if a.Redis != nil {
		a.Activity = activity.NewStreamLog(a.Redis, cfg.Activity.Stream, cfg.Activity.MaxLen)
	}

	var evidence service.EvidenceStore
	if cfg.Storage.Enabled {
		if a.Objects, err = storage.NewObjectStore(cfg.Storage); err != nil {
			return nil, err
		}
		if err := a.Objects.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Msg("ensure evidence bucket failed")
		}
		evidence = a.Objects
	}

	users := repository.NewUserRepository(a.Store)
	verifications := repository.NewVerificationRepository(a.Store)
	vehicleTypes := repository.NewVehicleTypeRepository(a.Store)

	hasher := security.NewPasswordHasher(security.Argon2Params{
		Time:    cfg.Security.Argon2Time,
		Memory:  cfg.Security.Argon2MemoryKB,
		Threads: cfg.Security.Argon2Threads,
	})
	tokens := security.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.SessionTTL)

	a.Verifications = service.NewVerificationService(verifications, a.Activity, a.Metrics, cfg.Verification, log)
	a.Submissions = service.NewSubmissionService(a.Verifications, evidence, log)
	a.Accounts = service.NewAccountService(users, vehicleTypes, security.NewKeyGenerator(nil), cfg.Security.KeyPepper, cfg.Accounts, a.Activity, a.Metrics, log)
	a.VehicleTypes = service.NewVehicleTypeService(vehicleTypes, a.Activity, log)
	a.Fleet = service.NewFleetService(repository.NewVehicleRepository(a.Store), a.Accounts, log)
	a.Auth = service.NewAuthService(users, repository.NewSessionRepository(a.Store), hasher, tokens, cfg.Security.KeyPepper, a.Activity, log)
	a.Dashboard = service.NewDashboardService(a.Verifications, a.Accounts, a.VehicleTypes)

	ready = true
	return a, nil
}

func (a *App) openStore(ctx context.Context, name string) (store.Adapter, error) {
	cfg := a.Config
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Postgres.AutoMigrate {
			if err := migrate.Up(ctx, cfg.Postgres.DSN); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, name)
		if err != nil {
			return nil, err
		}
		a.Pool = pool
		return store.NewPostgresAdapter(pool), nil
	case "redis":
		if a.Redis == nil {
			return nil, fmt.Errorf("redis store selected without redis.addr")
		}
		return store.NewRedisAdapter(a.Redis, cfg.Store.KeyPrefix, cfg.Store.MaxRetries), nil
	default:
		a.Log.Warn().Msg("using in-memory store; data is lost on restart")
		return store.NewMemoryAdapter(), nil
	}
}

// Bootstrap creates the first admin and seeds the vehicle type catalog.
func (a *App) Bootstrap(ctx context.Context) error {
	b := a.Config.Bootstrap
	if _, err := a.Auth.EnsureAdmin(ctx, b.AdminEmail, b.AdminPassword, b.AdminName); err != nil {
		return err
	}
	if b.SeedVehicleTypes {
		if _, err := a.VehicleTypes.Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Handlers() handlers.HandlerSet {
	return handlers.NewHandlerSet(handlers.Deps{
		Config:        a.Config,
		Log:           a.Log,
		Store:         a.Store,
		Cache:         a.Redis,
		Metrics:       a.Metrics,
		Activity:      a.Activity,
		Auth:          a.Auth,
		Verifications: a.Verifications,
		Submissions:   a.Submissions,
		Accounts:      a.Accounts,
		VehicleTypes:  a.VehicleTypes,
		Fleet:         a.Fleet,
		Dashboard:     a.Dashboard,
	})
}

func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Error().Err(err).Msg("redis close error")
		}
	}
}

// ShutdownTimeout bounds graceful shutdown in both binaries.
const ShutdownTimeout = 10 * time.Second
