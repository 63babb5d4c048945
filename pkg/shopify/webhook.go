package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

const (
	// HeaderEventID carries the sender's unique delivery identifier.
	HeaderEventID = "X-Shopify-Event-Id"
	// HeaderHmac carries the base64 HMAC-SHA256 of the raw body.
	HeaderHmac = "X-Shopify-Hmac-Sha256"
	// HeaderTopic names the webhook topic, e.g. orders/create.
	HeaderTopic = "X-Shopify-Topic"
)

// VerifyWebhookSignature checks the base64 HMAC-SHA256 signature Shopify
// attaches to webhook deliveries.
func VerifyWebhookSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
