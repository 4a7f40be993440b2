package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "FUNNELTRACK"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "FUNNELTRACK_APP_ENV"
	EnvPort     = "FUNNELTRACK_APP_PORT"
	EnvDBDSN    = "FUNNELTRACK_DB_DSN"
	EnvDBHost   = "FUNNELTRACK_DB_HOST"
	EnvDBUser   = "FUNNELTRACK_DB_USER"
	EnvDBName   = "FUNNELTRACK_DB_NAME"
	EnvRedisURL = "FUNNELTRACK_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
