package config

// EnvPrefix is the envconfig prefix shared by every section.
const EnvPrefix = "comicshop"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "COMICSHOP_APP_ENV"
	EnvPort                   = "COMICSHOP_APP_PORT"
	EnvDBDSN                  = "COMICSHOP_DB_DSN"
	EnvDBHost                 = "COMICSHOP_DB_HOST"
	EnvDBUser                 = "COMICSHOP_DB_USER"
	EnvDBName                 = "COMICSHOP_DB_NAME"
	EnvRedisURL               = "COMICSHOP_REDIS_URL"
	EnvJWTSecret              = "COMICSHOP_JWT_SECRET"
	EnvJWTIssuer              = "COMICSHOP_JWT_ISSUER"
	EnvJWTExpMins             = "COMICSHOP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "COMICSHOP_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
