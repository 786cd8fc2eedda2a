package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeSignature generates the HMAC-SHA256 signature for a payload.
// Returns the signature in the format: sha256=<hex_encoded_hmac>
func ComputeSignature(payload []byte, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(payload); err != nil {
		return "", fmt.Errorf("failed to write payload to HMAC: %w", err)
	}

	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil))), nil
}

// VerifySignature checks a provider signature against the raw request
// body. The "sha256=" prefix is optional on the provided value. The
// comparison is constant-time.
func VerifySignature(payload []byte, secret, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(payload); err != nil {
		return false
	}
	expected := hex.EncodeToString(mac.Sum(nil))

	given := strings.TrimPrefix(strings.TrimSpace(provided), "sha256=")
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(given)))
}
