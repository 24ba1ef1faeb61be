package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxUploadMB  int64
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Enabled        bool
	Endpoint       string
	PublicURL      string
	AccessKey      string
	SecretKey      string
	BucketEvidence string
	UseSSL         bool
	Region         string
}

// StoreConfig picks the persistence adapter: memory, postgres or redis.
type StoreConfig struct {
	Driver     string
	KeyPrefix  string
	MaxRetries int
}

type SecurityConfig struct {
	JWTSecret        string
	JWTIssuer        string
	SessionTTL       time.Duration
	KeyPepper        string
	SignatureSecret  string
	RequireSignature bool
	SignatureSkew    time.Duration
	Argon2Time       uint32
	Argon2MemoryKB   uint32
	Argon2Threads    uint8
}

type VerificationConfig struct {
	ValidityYears        int
	RevalidationInterval time.Duration
}

type AccountsConfig struct {
	MaxFleetSize int
}

type JobsConfig struct {
	Enabled           bool
	RevalidationSweep string
	ExpiryNoticeSweep string
	AttentionSnapshot string
}

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	// MetricsAddr is where the worker serves /metrics; empty disables it.
	MetricsAddr string
}

type ActivityConfig struct {
	Stream string
	MaxLen int64
}

type BootstrapConfig struct {
	AdminEmail       string
	AdminPassword    string
	AdminName        string
	SeedVehicleTypes bool
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	TLS              TLSConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Store            StoreConfig
	Security         SecurityConfig
	Verification     VerificationConfig
	Accounts         AccountsConfig
	Jobs             JobsConfig
	Worker           WorkerConfig
	Activity         ActivityConfig
	Bootstrap        BootstrapConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

// RedisEnabled reports whether any component needs the Redis connection.
func (c *AppConfig) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("TRANSIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Store.Driver {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Postgres.DSN == "" {
		return fmt.Errorf("config: postgres.dsn required for postgres store")
	}
	if c.Store.Driver == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr required for redis store")
	}
	if c.Security.RequireSignature && (c.Redis.Addr == "" || c.Security.SignatureSecret == "") {
		return fmt.Errorf("config: request signatures need redis.addr and security.signaturesecret")
	}
	if c.Environment == "production" && (c.Security.JWTSecret == "" || c.Security.KeyPepper == "") {
		return fmt.Errorf("config: security.jwtsecret and security.keypepper required in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.maxuploadmb", 16)

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucketevidence", "transit-id-evidence")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.keyprefix", "transit")
	v.SetDefault("store.maxretries", 5)

	v.SetDefault("security.jwtsecret", "dev-secret")
	v.SetDefault("security.jwtissuer", "transit-admin")
	v.SetDefault("security.sessionttl", "12h")
	v.SetDefault("security.keypepper", "dev-pepper")
	v.SetDefault("security.requiresignature", false)
	v.SetDefault("security.signatureskew", "5m")
	v.SetDefault("security.argon2time", 3)
	v.SetDefault("security.argon2memorykb", 64*1024)
	v.SetDefault("security.argon2threads", 2)

	v.SetDefault("verification.validityyears", 1)
	v.SetDefault("verification.revalidationinterval", "8760h")

	v.SetDefault("accounts.maxfleetsize", 500)

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.revalidationsweep", "0 0 2 * * *")
	v.SetDefault("jobs.expirynoticesweep", "0 30 * * * *")
	v.SetDefault("jobs.attentionsnapshot", "@every 5m")

	v.SetDefault("worker.stream", "transit:tasks")
	v.SetDefault("worker.group", "transit-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.metricsaddr", ":9102")

	v.SetDefault("activity.stream", "transit:activity")
	v.SetDefault("activity.maxlen", 10000)

	v.SetDefault("bootstrap.adminemail", "admin@example.com")
	v.SetDefault("bootstrap.adminname", "Admin User")
	v.SetDefault("bootstrap.seedvehicletypes", true)

	v.SetDefault("logging.level", "info")
}
