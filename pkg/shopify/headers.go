package shopify

// Webhook request headers set by Shopify.
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderAPIVersion = "X-Shopify-API-Version"
	HeaderTriggerAt  = "X-Shopify-Triggered-At"
)

const HeaderAuthorization = "Authorization"
