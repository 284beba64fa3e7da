package config

// EnvPrefix is handed to envconfig; every tag carries its full name anyway.
const EnvPrefix = "BLOODLINK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "BLOODLINK_APP_ENV"
	EnvPort     = "BLOODLINK_APP_PORT"
	EnvLogLevel = "BLOODLINK_LOG_LEVEL"

	EnvDBDSN  = "BLOODLINK_DB_DSN"
	EnvDBHost = "BLOODLINK_DB_HOST"
	EnvDBUser = "BLOODLINK_DB_USER"
	EnvDBName = "BLOODLINK_DB_NAME"

	EnvRedisURL = "BLOODLINK_REDIS_URL"

	EnvJWTSecret  = "BLOODLINK_JWT_SECRET"
	EnvJWTIssuer  = "BLOODLINK_JWT_ISSUER"
	EnvJWTExpMins = "BLOODLINK_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "BLOODLINK_USE_SQLITE"

	EnvInventoryCriticalMax = "BLOODLINK_INVENTORY_CRITICAL_MAX"
	EnvInventoryLowMax      = "BLOODLINK_INVENTORY_LOW_MAX"

	EnvDonationDeferralDays = "BLOODLINK_DONATION_DEFERRAL_DAYS"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
