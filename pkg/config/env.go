package config

const EnvPrefix = "DROPSAAS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	ServiceKindAPI             = "api"
	ServiceKindOutboxPublisher = "outbox-publisher"
	ServiceKindCronWorker      = "cron-worker"
)

const (
	EnvAppEnv    = "DROPSAAS_APP_ENV"
	EnvPort      = "DROPSAAS_APP_PORT"
	EnvPublicURL = "DROPSAAS_APP_PUBLIC_URL"
	EnvLogLevel  = "DROPSAAS_LOG_LEVEL"
	EnvService   = "DROPSAAS_SERVICE_KIND"

	EnvDBDSN      = "DROPSAAS_DB_DSN"
	EnvDBHost     = "DROPSAAS_DB_HOST"
	EnvDBUser     = "DROPSAAS_DB_USER"
	EnvDBName     = "DROPSAAS_DB_NAME"
	EnvDBPassword = "DROPSAAS_DB_PASSWORD"
	EnvUseSQLite  = "DROPSAAS_USE_SQLITE"

	EnvRedisURL = "DROPSAAS_REDIS_URL"

	EnvShopifyAPIKey        = "DROPSAAS_SHOPIFY_API_KEY"
	EnvShopifyAPISecret     = "DROPSAAS_SHOPIFY_API_SECRET"
	EnvShopifyScopes        = "DROPSAAS_SHOPIFY_SCOPES"
	EnvShopifyWebhookTopics = "DROPSAAS_SHOPIFY_WEBHOOK_TOPICS"

	EnvServiceSecret      = "DROPSAAS_SERVICE_SECRET"
	EnvRelayTargetURL     = "DROPSAAS_RELAY_TARGET_URL"
	EnvWebhookDedupeTTL   = "DROPSAAS_WEBHOOK_DEDUPE_TTL"
	EnvTokenEncryptionKey = "DROPSAAS_TOKEN_ENCRYPTION_KEY"

	EnvGCPProjectID      = "DROPSAAS_GCP_PROJECT_ID"
	EnvPubSubEventsTopic = "DROPSAAS_PUBSUB_EVENTS_TOPIC"
	EnvCORSOrigins       = "DROPSAAS_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
