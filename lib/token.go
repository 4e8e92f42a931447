package lib

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const maxClientIdLength = 64

// GenerateClientId generates a cryptographically secure random device id
func GenerateClientId() (string, error) {
	bytes := make([]byte, 18)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate client id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// SanitizeClientId keeps client ids safe to embed in cache keys.
func SanitizeClientId(raw string) string {
	id := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, strings.TrimSpace(raw))
	if len(id) > maxClientIdLength {
		id = id[:maxClientIdLength]
	}
	return id
}
