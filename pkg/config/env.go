package config

const EnvPrefix = "MONEYPILOT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv          = "MONEYPILOT_APP_ENV"
	EnvPort            = "MONEYPILOT_APP_PORT"
	EnvDBDSN           = "MONEYPILOT_DB_DSN"
	EnvDBHost          = "MONEYPILOT_DB_HOST"
	EnvDBUser          = "MONEYPILOT_DB_USER"
	EnvDBPassword      = "MONEYPILOT_DB_PASSWORD"
	EnvDBName          = "MONEYPILOT_DB_NAME"
	EnvUseSQLite       = "MONEYPILOT_USE_SQLITE"
	EnvRedisURL        = "MONEYPILOT_REDIS_URL"
	EnvJWTSecret       = "MONEYPILOT_JWT_SECRET"
	EnvJWTIssuer       = "MONEYPILOT_JWT_ISSUER"
	EnvDetectTO        = "MONEYPILOT_DETECT_TIMEOUT"
	EnvDetectLockTTL   = "MONEYPILOT_DETECT_LOCK_TTL"
	EnvGCSBucket       = "MONEYPILOT_GCS_BUCKET_NAME"
	EnvGCPProjectID    = "MONEYPILOT_GCP_PROJECT_ID"
	EnvPubSubTopic     = "MONEYPILOT_PUBSUB_EVENTS_TOPIC"
	EnvBigQueryRollups = "MONEYPILOT_BIGQUERY_ROLLUPS_TABLE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
