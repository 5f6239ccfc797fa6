package security

import (
	"regexp"
	"strings"
)

var (
	unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	safeKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	hexPattern     = regexp.MustCompile(`^[a-fA-F0-9]+$`)
)

// APIKeyValidator provides validation and log-safe handling of API keys
type APIKeyValidator struct {
	minLength int
	maxLength int
}

// NewAPIKeyValidator creates a new API key validator with reasonable defaults
func NewAPIKeyValidator() *APIKeyValidator {
	return &APIKeyValidator{
		minLength: 8,
		maxLength: 128,
	}
}

// ValidateAPIKey validates API key format and length
func (v *APIKeyValidator) ValidateAPIKey(apiKey string) bool {
	if len(apiKey) < v.minLength || len(apiKey) > v.maxLength {
		return false
	}
	return safeKeyPattern.MatchString(apiKey)
}

// SanitizeAPIKey trims whitespace and drops characters that could break a query string
func (v *APIKeyValidator) SanitizeAPIKey(apiKey string) string {
	return unsafeKeyChars.ReplaceAllString(strings.TrimSpace(apiKey), "")
}

// MaskAPIKey creates a masked version for logging (shows only first/last few chars)
func (v *APIKeyValidator) MaskAPIKey(apiKey string) string {
	if len(apiKey) == 0 {
		return "[empty]"
	}
	if len(apiKey) <= 8 {
		return "[***]"
	}
	return apiKey[:3] + "..." + apiKey[len(apiKey)-3:]
}

// IsValidTMDBKey reports whether apiKey looks like a TMDB v3 key (32 hex chars)
func (v *APIKeyValidator) IsValidTMDBKey(apiKey string) bool {
	if !v.ValidateAPIKey(apiKey) || len(apiKey) != 32 {
		return false
	}
	return hexPattern.MatchString(apiKey)
}
