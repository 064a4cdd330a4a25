package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Billing      BillingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOKOLIST_APP_ENV" required:"true"`
	Port         string `envconfig:"SOKOLIST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOKOLIST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOKOLIST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SOKOLIST_DB_DSN"`
	Driver string `envconfig:"SOKOLIST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOKOLIST_DB_HOST"`
	LegacyPort     int    `envconfig:"SOKOLIST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOKOLIST_DB_USER"`
	LegacyPassword string `envconfig:"SOKOLIST_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOKOLIST_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOKOLIST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOKOLIST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOKOLIST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOKOLIST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOKOLIST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOKOLIST_REDIS_URL"`
	Address      string        `envconfig:"SOKOLIST_REDIS_ADDR"`
	Password     string        `envconfig:"SOKOLIST_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOKOLIST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOKOLIST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOKOLIST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOKOLIST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOKOLIST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOKOLIST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint is configured at all. The webhook
// dedup fast path is skipped without one; the ledger's conditional write still
// guarantees at-most-once application.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"SOKOLIST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOKOLIST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOKOLIST_JWT_EXPIRATION_MINUTES" default:"60"`
}

// GatewayConfig holds the payment gateway credentials. When APIKey is empty
// the client runs in Demo Mode: all gateway interactions are simulated
// deterministically and signature verification is relaxed.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"SOKOLIST_GATEWAY_BASE_URL" default:"https://api.gateway.example.com"`
	APIKey        string        `envconfig:"SOKOLIST_GATEWAY_API_KEY"`
	WebhookSecret string        `envconfig:"SOKOLIST_GATEWAY_WEBHOOK_SECRET"`
	CallbackURL   string        `envconfig:"SOKOLIST_GATEWAY_CALLBACK_URL" default:"http://localhost:8080/api/v1/payments/return"`
	Timeout       time.Duration `envconfig:"SOKOLIST_GATEWAY_TIMEOUT" default:"10s"`
}

// DemoMode reports whether live credentials are absent. This is a first-class
// operating mode, not an error path.
func (g GatewayConfig) DemoMode() bool {
	return strings.TrimSpace(g.APIKey) == ""
}

type BillingConfig struct {
	// ResultURL is the browser destination the return handler redirects to;
	// reconciliation outcome is encoded in its query string.
	ResultURL          string        `envconfig:"SOKOLIST_BILLING_RESULT_URL" default:"http://localhost:3000/billing/result"`
	WebhookDedupTTL    time.Duration `envconfig:"SOKOLIST_BILLING_WEBHOOK_DEDUP_TTL" default:"24h"`
	SubscriptionPeriod time.Duration `envconfig:"SOKOLIST_BILLING_SUBSCRIPTION_PERIOD" default:"0"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SOKOLIST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SOKOLIST_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
