package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "QUOTAGATE_DB_DSN"
	EnvDBHost = "QUOTAGATE_DB_HOST"
	EnvDBUser = "QUOTAGATE_DB_USER"
	EnvDBName = "QUOTAGATE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Payment       PaymentConfig
	Billing       BillingConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"QUOTAGATE_APP_ENV" required:"true"`
	Port         string `envconfig:"QUOTAGATE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUOTAGATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUOTAGATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"QUOTAGATE_DB_DSN"`
	Driver string `envconfig:"QUOTAGATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUOTAGATE_DB_HOST"`
	LegacyPort     int    `envconfig:"QUOTAGATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUOTAGATE_DB_USER"`
	LegacyPassword string `envconfig:"QUOTAGATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUOTAGATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUOTAGATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUOTAGATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUOTAGATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUOTAGATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUOTAGATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUOTAGATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QUOTAGATE_REDIS_ADDR"`
	Password     string        `envconfig:"QUOTAGATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUOTAGATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUOTAGATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUOTAGATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUOTAGATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUOTAGATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUOTAGATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"QUOTAGATE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"QUOTAGATE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"QUOTAGATE_JWT_EXPIRATION_MINUTES" default:"15"`
	RefreshTokenTTLMinutes int    `envconfig:"QUOTAGATE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"QUOTAGATE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"QUOTAGATE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"QUOTAGATE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"QUOTAGATE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"QUOTAGATE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"QUOTAGATE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"QUOTAGATE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"QUOTAGATE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"QUOTAGATE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"QUOTAGATE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"QUOTAGATE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// PaymentConfig describes the fixed upgrade offer presented to blocked callers.
type PaymentConfig struct {
	AmountCents    int64  `envconfig:"QUOTAGATE_PAYMENT_AMOUNT_CENTS" default:"1000"`
	Currency       string `envconfig:"QUOTAGATE_PAYMENT_CURRENCY" default:"USDC"`
	Network        string `envconfig:"QUOTAGATE_PAYMENT_NETWORK" default:"base"`
	ReceiveAddress string `envconfig:"QUOTAGATE_PAYMENT_RECEIVE_ADDRESS" required:"true"`
}

// BillingConfig carries the tier quota policy so new tiers stay a data change.
type BillingConfig struct {
	FreeStartingCredits int `envconfig:"QUOTAGATE_BILLING_FREE_STARTING_CREDITS" default:"20"`
	FreeDailyLimit      int `envconfig:"QUOTAGATE_BILLING_FREE_DAILY_LIMIT" default:"10"`
	PaidDailyLimit      int `envconfig:"QUOTAGATE_BILLING_PAID_DAILY_LIMIT" default:"1000"`
	RequestCost         int `envconfig:"QUOTAGATE_BILLING_REQUEST_COST" default:"1"`
	PaidWelcomeCredits  int `envconfig:"QUOTAGATE_BILLING_PAID_WELCOME_CREDITS" default:"120"`
	PaidTopUpCredits    int `envconfig:"QUOTAGATE_BILLING_PAID_TOPUP_CREDITS" default:"100"`
	UsageQueueSize      int `envconfig:"QUOTAGATE_BILLING_USAGE_QUEUE_SIZE" default:"256"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QUOTAGATE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QUOTAGATE_AUTO_MIGRATE" default:"false"`
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
