package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignature is what the gateway hands the checkout client after capture.
func PaymentSignature(orderID, paymentID, secret string) string {
	return Sign([]byte(orderID+"|"+paymentID), secret)
}

// VerifyPaymentSignature checks the checkout callback signature in constant time.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || secret == "" {
		return false
	}
	return equalHex(PaymentSignature(orderID, paymentID, secret), signature)
}

// VerifyWebhookSignature checks a webhook body against its signature header.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" || len(body) == 0 {
		return false
	}
	return equalHex(Sign(body, secret), signature)
}

func equalHex(expected, provided string) bool {
	provided = strings.ToLower(strings.TrimSpace(provided))
	if provided == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}
