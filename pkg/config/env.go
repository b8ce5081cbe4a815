package config

// EnvPrefix is passed to envconfig; every field carries an explicit name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StateDriverRedis    = "redis"
	StateDriverPostgres = "postgres"
	StateDriverSQLite   = "sqlite"
	StateDriverMemory   = "memory"

	DefaultSQLiteDSN = "file:storefront-state.db?_busy_timeout=5000"
)

const (
	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvPort            = "STOREFRONT_APP_PORT"
	EnvUpstreamBaseURL = "STOREFRONT_UPSTREAM_BASE_URL"
	EnvStateDriver     = "STOREFRONT_STATE_DRIVER"
	EnvDBDSN           = "STOREFRONT_DB_DSN"
	EnvDBHost          = "STOREFRONT_DB_HOST"
	EnvDBUser          = "STOREFRONT_DB_USER"
	EnvDBName          = "STOREFRONT_DB_NAME"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvRazorpayKeyID   = "STOREFRONT_RAZORPAY_KEY_ID"
	EnvCheckoutTTL     = "STOREFRONT_CHECKOUT_TTL"
	EnvPubSubTopic     = "STOREFRONT_PUBSUB_CHECKOUT_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
