package config

const (
	EnvPrefix = "COMMISSION"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "COMMISSION_APP_ENV"
	EnvPort     = "COMMISSION_APP_PORT"
	EnvLogLevel = "COMMISSION_LOG_LEVEL"

	EnvDBDSN  = "COMMISSION_DB_DSN"
	EnvDBHost = "COMMISSION_DB_HOST"
	EnvDBUser = "COMMISSION_DB_USER"
	EnvDBName = "COMMISSION_DB_NAME"

	EnvUseSQLite = "COMMISSION_USE_SQLITE"
	EnvRedisURL  = "COMMISSION_REDIS_URL"

	EnvCommissionRates      = "COMMISSION_RATES"
	EnvCommissionMinDeposit = "COMMISSION_MIN_DEPOSIT"

	EnvCronReconcileBatch = "COMMISSION_CRON_RECONCILE_BATCH"

	EnvGCPProjectID      = "COMMISSION_GCP_PROJECT_ID"
	EnvPubSubDepositsSub = "COMMISSION_PUBSUB_DEPOSITS_SUBSCRIPTION"
)
