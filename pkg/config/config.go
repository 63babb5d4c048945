package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Shopify  ShopifyConfig
	Queue    QueueConfig
	Dedupe   DedupeConfig
	Notifier NotifierConfig
	Flags    FeatureFlagsConfig
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
	Env          string `envconfig:"SUBSWAP_APP_ENV" required:"true"`
	Port         string `envconfig:"SUBSWAP_APP_PORT" required:"true"`
	MetricsPort  string `envconfig:"SUBSWAP_METRICS_PORT" default:"9102"`
	LogLevel     string `envconfig:"SUBSWAP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUBSWAP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SUBSWAP_DB_DSN"`
	Driver string `envconfig:"SUBSWAP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUBSWAP_DB_HOST"`
	LegacyPort     int    `envconfig:"SUBSWAP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUBSWAP_DB_USER"`
	LegacyPassword string `envconfig:"SUBSWAP_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUBSWAP_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUBSWAP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUBSWAP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUBSWAP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUBSWAP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUBSWAP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUBSWAP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUBSWAP_REDIS_ADDR"`
	Password     string        `envconfig:"SUBSWAP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUBSWAP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUBSWAP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUBSWAP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUBSWAP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUBSWAP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUBSWAP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ShopifyConfig struct {
	ShopDomain     string `envconfig:"SUBSWAP_SHOPIFY_SHOP_DOMAIN" required:"true"`
	AccessToken    string `envconfig:"SUBSWAP_SHOPIFY_ACCESS_TOKEN" required:"true"`
	APIVersion     string `envconfig:"SUBSWAP_SHOPIFY_API_VERSION" default:"2024-10"`
	WebhookSecret  string `envconfig:"SUBSWAP_SHOPIFY_WEBHOOK_SECRET" required:"true"`
	ReplacementTag string `envconfig:"SUBSWAP_SHOPIFY_REPLACEMENT_TAG" default:"currect_coffe"`
}

type QueueConfig struct {
	Name         string        `envconfig:"SUBSWAP_QUEUE_NAME" default:"shopify-orders"`
	Attempts     int           `envconfig:"SUBSWAP_QUEUE_ATTEMPTS" default:"3"`
	BackoffBase  time.Duration `envconfig:"SUBSWAP_QUEUE_BACKOFF_BASE" default:"1s"`
	Concurrency  int           `envconfig:"SUBSWAP_QUEUE_CONCURRENCY" default:"2"`
	LockDuration time.Duration `envconfig:"SUBSWAP_QUEUE_LOCK_DURATION" default:"30s"`
	PollInterval time.Duration `envconfig:"SUBSWAP_QUEUE_POLL_INTERVAL" default:"250ms"`
}

type DedupeConfig struct {
	MaxEntries int           `envconfig:"SUBSWAP_DEDUPE_MAX_ENTRIES" default:"1000"`
	TTL        time.Duration `envconfig:"SUBSWAP_DEDUPE_TTL" default:"24h"`
}

type NotifierConfig struct {
	BatchThreshold int    `envconfig:"SUBSWAP_NOTIFIER_BATCH_THRESHOLD" default:"3"`
	ResendAPIKey   string `envconfig:"SUBSWAP_RESEND_API_KEY"`
	FromEmail      string `envconfig:"SUBSWAP_NOTIFIER_FROM_EMAIL" default:"Subswap <onboarding@resend.dev>"`
	ToEmail        string `envconfig:"SUBSWAP_NOTIFIER_TO_EMAIL"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SUBSWAP_AUTO_MIGRATE" default:"false"`
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
