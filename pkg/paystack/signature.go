package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the header Paystack signs webhook deliveries with.
const SignatureHeader = "X-Paystack-Signature"

// ComputeSignature returns the hex HMAC-SHA512 of the raw body under the secret key.
func ComputeSignature(secretKey string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks a webhook signature in constant time.
func ValidateSignature(secretKey string, body []byte, signature string) bool {
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return false
	}
	expected := ComputeSignature(secretKey, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(sig)))
}
