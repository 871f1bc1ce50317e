package config

const EnvPrefix = "BAZAAR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "BAZAAR_APP_ENV"
	EnvPort      = "BAZAAR_APP_PORT"
	EnvLogLvl    = "BAZAAR_LOG_LEVEL"
	EnvDBDSN     = "BAZAAR_DB_DSN"
	EnvDBHost    = "BAZAAR_DB_HOST"
	EnvDBUser    = "BAZAAR_DB_USER"
	EnvDBName    = "BAZAAR_DB_NAME"
	EnvRedisURL  = "BAZAAR_REDIS_URL"
	EnvUseSQLite = "BAZAAR_USE_SQLITE"

	EnvJWTSecret  = "BAZAAR_JWT_SECRET"
	EnvJWTIssuer  = "BAZAAR_JWT_ISSUER"
	EnvJWTExpMins = "BAZAAR_JWT_EXPIRATION_MINUTES"

	EnvGatewayKeyID         = "BAZAAR_GATEWAY_KEY_ID"
	EnvGatewayKeySecret     = "BAZAAR_GATEWAY_KEY_SECRET"
	EnvGatewayWebhookSecret = "BAZAAR_GATEWAY_WEBHOOK_SECRET"
	EnvGatewayTimeout       = "BAZAAR_GATEWAY_TIMEOUT"

	EnvOrdersPendingTTL = "BAZAAR_ORDERS_PENDING_TTL"

	EnvGCPProjectID        = "BAZAAR_GCP_PROJECT_ID"
	EnvPubSubCommerceTopic = "BAZAAR_PUBSUB_COMMERCE_TOPIC"
	EnvOutboxMaxAttempts   = "BAZAAR_OUTBOX_MAX_ATTEMPTS"

	EnvCronInterval = "BAZAAR_CRON_INTERVAL"
	EnvCronLockTTL  = "BAZAAR_CRON_LOCK_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
