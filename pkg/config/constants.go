package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "RENTIVA_DB_DSN"
	EnvDBHost = "RENTIVA_DB_HOST"
	EnvDBUser = "RENTIVA_DB_USER"
	EnvDBName = "RENTIVA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
