package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv  = "SUBSWAP_APP_ENV"
	EnvAppPort = "SUBSWAP_APP_PORT"

	EnvDBDSN  = "SUBSWAP_DB_DSN"
	EnvDBHost = "SUBSWAP_DB_HOST"
	EnvDBUser = "SUBSWAP_DB_USER"
	EnvDBName = "SUBSWAP_DB_NAME"

	EnvRedisURL = "SUBSWAP_REDIS_URL"

	EnvShopifyShopDomain    = "SUBSWAP_SHOPIFY_SHOP_DOMAIN"
	EnvShopifyAccessToken   = "SUBSWAP_SHOPIFY_ACCESS_TOKEN"
	EnvShopifyWebhookSecret = "SUBSWAP_SHOPIFY_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
