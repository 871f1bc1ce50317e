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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Pricing      PricingConfig
	Orders       OrdersConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.useSQLite()
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects combinations envconfig cannot express on its own.
func (c *Config) validate() error {
	var problems []string
	if c.Cron.LockTTL >= c.Cron.Interval {
		problems = append(problems, fmt.Sprintf("%s (%s) must be shorter than %s (%s)", EnvCronLockTTL, c.Cron.LockTTL, EnvCronInterval, c.Cron.Interval))
	}
	if c.Pricing.TaxRateBps < 0 || c.Pricing.FreeShippingThreshold < 0 || c.Pricing.FlatShippingFee < 0 {
		problems = append(problems, "pricing values must not be negative")
	}
	if len(c.Gateway.Currency) != 3 {
		problems = append(problems, fmt.Sprintf("gateway currency %q is not an ISO 4217 code", c.Gateway.Currency))
	}
	if c.Orders.PendingTTL <= 0 {
		problems = append(problems, EnvOrdersPendingTTL+" must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

type AppConfig struct {
	Env          string   `envconfig:"BAZAAR_APP_ENV" required:"true"`
	Port         string   `envconfig:"BAZAAR_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BAZAAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BAZAAR_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BAZAAR_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZAAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAAR_DB_DSN"`
	Driver string `envconfig:"BAZAAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZAAR_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAAR_DB_USER"`
	LegacyPassword string `envconfig:"BAZAAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"BAZAAR_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZAAR_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZAAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAZAAR_JWT_EXPIRATION_MINUTES" required:"true"`
}

// GatewayConfig holds the payment gateway credentials. KeySecret never leaves the process.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"BAZAAR_GATEWAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	KeyID         string        `envconfig:"BAZAAR_GATEWAY_KEY_ID" required:"true"`
	KeySecret     string        `envconfig:"BAZAAR_GATEWAY_KEY_SECRET" required:"true"`
	WebhookSecret string        `envconfig:"BAZAAR_GATEWAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"BAZAAR_GATEWAY_TIMEOUT" default:"10s"`
	Currency      string        `envconfig:"BAZAAR_GATEWAY_CURRENCY" default:"INR"`
	MerchantName  string        `envconfig:"BAZAAR_GATEWAY_MERCHANT_NAME" default:"Bazaar"`
}

// PricingConfig amounts are in minor units (paise); rates in basis points.
type PricingConfig struct {
	TaxRateBps            int64 `envconfig:"BAZAAR_PRICING_TAX_RATE_BPS" default:"1800"`
	FreeShippingThreshold int64 `envconfig:"BAZAAR_PRICING_FREE_SHIPPING_THRESHOLD" default:"50000"`
	FlatShippingFee       int64 `envconfig:"BAZAAR_PRICING_FLAT_SHIPPING_FEE" default:"5000"`
}

type OrdersConfig struct {
	PendingTTL time.Duration `envconfig:"BAZAAR_ORDERS_PENDING_TTL" default:"48h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BAZAAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BAZAAR_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"BAZAAR_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"BAZAAR_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"BAZAAR_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	CommerceTopic string `envconfig:"BAZAAR_PUBSUB_COMMERCE_TOPIC" default:"bazaar-commerce-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"BAZAAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"BAZAAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"BAZAAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"BAZAAR_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BAZAAR_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"BAZAAR_CRON_LOCK_TTL" default:"4m"`
}

// useSQLite switches to a local file database unless a DSN was given.
func (db *DBConfig) useSQLite() {
	db.Driver = "sqlite"
	if db.DSN == "" {
		db.DSN = "file:bazaar.db?_busy_timeout=5000"
	}
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
