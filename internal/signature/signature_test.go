package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"order":{"charge_id":"chg_1","status":"success"}}`)

	t.Run("ValidSignature", func(t *testing.T) {
		if !Verify(body, sign(body, secret), secret) {
			t.Fatal("expected valid signature to verify")
		}
	})

	t.Run("TamperedBody", func(t *testing.T) {
		sig := sign(body, secret)
		for i := range body {
			mutated := make([]byte, len(body))
			copy(mutated, body)
			mutated[i] ^= 0x01
			if Verify(mutated, sig, secret) {
				t.Fatalf("expected verification to fail after mutating byte %d", i)
			}
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		assert.False(t, Verify(body, sign(body, secret), "whsec_other"))
	})

	t.Run("MissingHeader", func(t *testing.T) {
		assert.False(t, Verify(body, "", secret))
	})

	t.Run("MissingSecret", func(t *testing.T) {
		assert.False(t, Verify(body, sign(body, secret), ""))
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		assert.False(t, Verify(body, "deadbeef", secret))
	})

	t.Run("EmptyBody", func(t *testing.T) {
		assert.True(t, Verify([]byte{}, sign([]byte{}, secret), secret))
	})
}
