package config

const (
	EnvPrefix = "LITTLELIGHT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                  = "LITTLELIGHT_APP_ENV"
	EnvPort                    = "LITTLELIGHT_APP_PORT"
	EnvDBDSN                   = "LITTLELIGHT_DB_DSN"
	EnvDBHost                  = "LITTLELIGHT_DB_HOST"
	EnvDBUser                  = "LITTLELIGHT_DB_USER"
	EnvDBName                  = "LITTLELIGHT_DB_NAME"
	EnvRedisURL                = "LITTLELIGHT_REDIS_URL"
	EnvJWTSecret               = "LITTLELIGHT_JWT_SECRET"
	EnvJWTIssuer               = "LITTLELIGHT_JWT_ISSUER"
	EnvGCPProjectID            = "LITTLELIGHT_GCP_PROJECT_ID"
	EnvPubSubOrdersSub         = "LITTLELIGHT_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubNotificationSub   = "LITTLELIGHT_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvCashbackRewardPercent   = "LITTLELIGHT_CASHBACK_REWARD_PERCENT"
	EnvNotificationSubscribers = "LITTLELIGHT_NOTIFICATIONS_EXECUTOR_SUBSCRIBERS"
	EnvCredentialsSecret       = "LITTLELIGHT_CREDENTIALS_SECRET"
)
