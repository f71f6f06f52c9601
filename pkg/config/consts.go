package config

// EnvPrefix is applied by envconfig to every variable lookup.
const EnvPrefix = "KASUWA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv    = "KASUWA_APP_ENV"
	EnvPort      = "KASUWA_APP_PORT"
	EnvDBDSN     = "KASUWA_DB_DSN"
	EnvDBHost    = "KASUWA_DB_HOST"
	EnvDBUser    = "KASUWA_DB_USER"
	EnvDBName    = "KASUWA_DB_NAME"
	EnvRedisURL  = "KASUWA_REDIS_URL"
	EnvJWTSecret = "KASUWA_JWT_SECRET"
	EnvJWTIssuer = "KASUWA_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
