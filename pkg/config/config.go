package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Rental        RentalConfig
	Cart          CartConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
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
	Env          string   `envconfig:"RENTIVA_APP_ENV" required:"true"`
	Port         string   `envconfig:"RENTIVA_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"RENTIVA_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"RENTIVA_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"RENTIVA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RENTIVA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RENTIVA_DB_DSN"`
	Driver string `envconfig:"RENTIVA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENTIVA_DB_HOST"`
	LegacyPort     int    `envconfig:"RENTIVA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENTIVA_DB_USER"`
	LegacyPassword string `envconfig:"RENTIVA_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENTIVA_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENTIVA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTIVA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTIVA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTIVA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTIVA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTIVA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RENTIVA_REDIS_ADDR"`
	Password     string        `envconfig:"RENTIVA_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTIVA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTIVA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTIVA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTIVA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTIVA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTIVA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RENTIVA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RENTIVA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RENTIVA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"RENTIVA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RENTIVA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RENTIVA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RENTIVA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RENTIVA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RENTIVA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RENTIVA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"RENTIVA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"RENTIVA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"RENTIVA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"RENTIVA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"RENTIVA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RENTIVA_AUTO_MIGRATE" default:"false"`
}

// RentalConfig holds the bootstrap defaults for the runtime-tunable rental
// settings. The settings service overlays persisted overrides on top of these.
type RentalConfig struct {
	TaxRate                 string `envconfig:"RENTIVA_TAX_RATE" default:"0.18"`
	LateFeePercent          string `envconfig:"RENTIVA_LATE_FEE_PERCENT" default:"0.20"`
	QuotationValidityHours  int    `envconfig:"RENTIVA_QUOTATION_VALIDITY_HOURS" default:"72"`
	Currency                string `envconfig:"RENTIVA_CURRENCY" default:"INR"`
	PendingOrderTTLHours    int    `envconfig:"RENTIVA_PENDING_ORDER_TTL_HOURS" default:"240"`
	SettingsCacheTTLSeconds int    `envconfig:"RENTIVA_SETTINGS_CACHE_TTL_SECONDS" default:"60"`
}

// QuotationValidity returns the configured default quotation validity window.
func (r RentalConfig) QuotationValidity() time.Duration {
	if r.QuotationValidityHours <= 0 {
		return 0
	}
	return time.Duration(r.QuotationValidityHours) * time.Hour
}

// PendingOrderTTL returns how long an unpaid pending order may linger before
// the cron worker cancels it.
func (r RentalConfig) PendingOrderTTL() time.Duration {
	if r.PendingOrderTTLHours <= 0 {
		return 0
	}
	return time.Duration(r.PendingOrderTTLHours) * time.Hour
}

// SettingsCacheTTL returns how long resolved settings may be served from redis.
func (r RentalConfig) SettingsCacheTTL() time.Duration {
	if r.SettingsCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.SettingsCacheTTLSeconds) * time.Second
}

type CartConfig struct {
	SnapshotTTLDays int `envconfig:"RENTIVA_CART_SNAPSHOT_TTL_DAYS" default:"30"`
}

// SnapshotTTL returns how long an idle cart snapshot survives in redis.
func (c CartConfig) SnapshotTTL() time.Duration {
	if c.SnapshotTTLDays <= 0 {
		return 0
	}
	return time.Duration(c.SnapshotTTLDays) * 24 * time.Hour
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RENTIVA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"RENTIVA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RENTIVA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"RENTIVA_PUBSUB_DOMAIN_TOPIC" default:"rentiva-domain-events"`
	DomainSubscription string `envconfig:"RENTIVA_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RENTIVA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RENTIVA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RENTIVA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"RENTIVA_CRON_INTERVAL" default:"1h"`
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
