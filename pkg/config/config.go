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
	Upstream      UpstreamConfig
	State         StateConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Payment       PaymentConfig
	Checkout      CheckoutConfig
	AuthRateLimit AuthRateLimitConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Upstream.validate(); err != nil {
		return nil, err
	}
	if err := cfg.State.validate(); err != nil {
		return nil, err
	}
	if cfg.State.UsesSQL() {
		if err := cfg.DB.ensureDSN(cfg.State.NormalizedDriver()); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points the gateway at the storefront REST API.
type UpstreamConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_UPSTREAM_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_UPSTREAM_TIMEOUT" default:"15s"`
}

func (u UpstreamConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(u.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvUpstreamBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvUpstreamBaseURL)
	}
	return nil
}

// StateConfig selects where client state (identity, cart cache, checkout sessions) lives.
type StateConfig struct {
	Driver      string        `envconfig:"STOREFRONT_STATE_DRIVER" default:"redis"`
	AutoMigrate bool          `envconfig:"STOREFRONT_STATE_AUTO_MIGRATE" default:"false"`
	IdentityTTL time.Duration `envconfig:"STOREFRONT_STATE_IDENTITY_TTL" default:"168h"`
	CartTTL     time.Duration `envconfig:"STOREFRONT_STATE_CART_TTL" default:"72h"`
}

func (s StateConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StateDriverRedis, StateDriverPostgres, StateDriverSQLite, StateDriverMemory:
		return nil
	}
	return fmt.Errorf("%s must be one of redis, postgres, sqlite, memory (got %q)", EnvStateDriver, s.Driver)
}

// NormalizedDriver returns the lower-cased driver name.
func (s StateConfig) NormalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(s.Driver))
}

// UsesSQL reports whether state is kept in a gorm-backed table.
func (s StateConfig) UsesSQL() bool {
	d := s.NormalizedDriver()
	return d == StateDriverPostgres || d == StateDriverSQLite
}

type DBConfig struct {
	DSN string `envconfig:"STOREFRONT_DB_DSN"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQueryThreshold logs statements slower than this at warn; zero disables.
	SlowQueryThreshold time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"200ms"`

	// Driver is copied from StateConfig by Load.
	Driver string `ignored:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// JWTConfig controls how upstream bearer tokens are inspected. The gateway never
// signs tokens; it only reads their claims.
type JWTConfig struct {
	ExpiryLeeway time.Duration `envconfig:"STOREFRONT_JWT_EXPIRY_LEEWAY" default:"30s"`
	AdminRole    string        `envconfig:"STOREFRONT_JWT_ADMIN_ROLE" default:"admin"`
}

// PaymentConfig carries the public settings handed to the hosted payment overlay.
type PaymentConfig struct {
	KeyID        string `envconfig:"STOREFRONT_RAZORPAY_KEY_ID"`
	Currency     string `envconfig:"STOREFRONT_PAYMENT_CURRENCY" default:"INR"`
	MerchantName string `envconfig:"STOREFRONT_PAYMENT_MERCHANT_NAME" default:"Storefront"`
}

type CheckoutConfig struct {
	SessionTTL time.Duration `envconfig:"STOREFRONT_CHECKOUT_TTL" default:"30m"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	OTPWindow       time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_OTP_WINDOW" default:"10m"`
	OTPEmailLimit   int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_OTP_EMAIL_LIMIT" default:"5"`
	OTPIPLimit      int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"30"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	CheckoutTopic string `envconfig:"STOREFRONT_PUBSUB_CHECKOUT_TOPIC"`
}

// Enabled reports whether checkout events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.CheckoutTopic) != ""
}

func (db *DBConfig) ensureDSN(driver string) error {
	db.Driver = driver
	if db.DSN != "" {
		return nil
	}
	if driver == StateDriverSQLite {
		db.DSN = DefaultSQLiteDSN
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
