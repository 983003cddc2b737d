package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SecretSize256 provides 256 bits of entropy (43 chars base64url).
const SecretSize256 = 32

// GenerateSecret creates a cryptographically secure random secret of the
// given byte length, returned base64url-encoded without padding.
func GenerateSecret(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: secret size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
