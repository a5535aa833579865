package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verify checks a webhook HMAC-SHA256 signature against the exact raw body
// bytes. The signature header is the lowercase hex digest. It must never be
// computed over re-serialized JSON: whitespace or key-order differences would
// break the digest.
func Verify(rawBody []byte, signatureHeader, secret string) bool {
	if signatureHeader == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}
