package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// APIKeyPrefix identifies credentials issued by this service.
	APIKeyPrefix = "qg_"

	apiKeyBytes = 32
)

// GenerateAPIKey produces a new random API key with the service prefix.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return APIKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// LooksLikeAPIKey performs a cheap shape check before hitting storage.
func LooksLikeAPIKey(candidate string) bool {
	if !strings.HasPrefix(candidate, APIKeyPrefix) {
		return false
	}
	rest := strings.TrimPrefix(candidate, APIKeyPrefix)
	if rest == "" {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(rest)
	return err == nil
}
