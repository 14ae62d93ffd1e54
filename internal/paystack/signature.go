package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader is the header Paystack signs webhook deliveries with.
const SignatureHeader = "x-paystack-signature"

// ValidSignature reports whether signature is the HMAC-SHA512 hex digest
// of exactly the raw body bytes under secret. The body must be the bytes
// as received on the wire; re-serializing a parsed payload can change
// whitespace or key order and break legitimate signatures.
//
// A missing secret or missing signature fails closed.
func ValidSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the digest Paystack would send for body. Used by tests and
// by tooling that replays captured events.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
