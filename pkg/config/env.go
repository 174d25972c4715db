package config

const EnvPrefix = "MERCERIE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultSQLiteDSN = "file:mercerie.db?_foreign_keys=on"
)

const (
	EnvAppEnv     = "MERCERIE_APP_ENV"
	EnvPort       = "MERCERIE_APP_PORT"
	EnvDBDSN      = "MERCERIE_DB_DSN"
	EnvDBDriver   = "MERCERIE_DB_DRIVER"
	EnvDBHost     = "MERCERIE_DB_HOST"
	EnvDBUser     = "MERCERIE_DB_USER"
	EnvDBPassword = "MERCERIE_DB_PASSWORD"
	EnvDBName     = "MERCERIE_DB_NAME"
	EnvRedisURL   = "MERCERIE_REDIS_URL"
	EnvJWTSecret  = "MERCERIE_JWT_SECRET"
	EnvJWTIssuer  = "MERCERIE_JWT_ISSUER"
	EnvJWTExpMins = "MERCERIE_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
