package config

const (
	EnvPrefix = "SOKOLIST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SOKOLIST_DB_DSN"
	EnvDBHost = "SOKOLIST_DB_HOST"
	EnvDBUser = "SOKOLIST_DB_USER"
	EnvDBName = "SOKOLIST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
