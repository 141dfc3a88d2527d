package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
)

const (
	// MinSecretLength is the minimum length of a listener signing secret
	MinSecretLength = 32

	// MinEntropy is the minimum Shannon entropy, in bits per character
	MinEntropy = 3.5

	// generatedSecretBytes encodes to 48 base64 characters
	generatedSecretBytes = 36
)

// placeholderFragments mark secrets copied from documentation or examples
var placeholderFragments = []string{
	"replace",
	"changeme",
	"change-me",
	"topsecret",
	"password",
	"your-secret",
	"webhook-secret",
}

// ValidateSecret checks that a signing secret is long, random and not a placeholder
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return fmt.Errorf("secret too short (minimum %d characters, got %d)", MinSecretLength, len(secret))
	}

	lower := strings.ToLower(secret)
	for _, fragment := range placeholderFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("secret appears to be a placeholder value (contains %q)", fragment)
		}
	}

	if entropy := calculateEntropy(secret); entropy < MinEntropy {
		return fmt.Errorf("secret has insufficient entropy (%.2f < %.2f), use a more random secret", entropy, MinEntropy)
	}

	return nil
}

// GenerateSecret returns a random URL-safe secret of 48 characters
func GenerateSecret() (string, error) {
	buf := make([]byte, generatedSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// IsWeakSecret is a lenient check used for warnings rather than rejection
func IsWeakSecret(secret string) bool {
	if len(secret) < MinSecretLength {
		return true
	}
	if strings.Trim(secret, secret[:1]) == "" {
		return true
	}
	return isSequential(secret) || calculateEntropy(secret) < 2.5
}

// calculateEntropy computes the Shannon entropy of s in bits per character
func calculateEntropy(s string) float64 {
	if s == "" {
		return 0
	}

	freq := make(map[rune]int)
	total := 0
	for _, c := range s {
		freq[c]++
		total++
	}

	var entropy float64
	for _, count := range freq {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// isSequential reports whether more than 70% of neighbouring characters differ by one
func isSequential(s string) bool {
	if len(s) < 4 {
		return false
	}

	steps := 0
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1]+1 || s[i] == s[i-1]-1 {
			steps++
		}
	}

	return float64(steps) > float64(len(s))*0.7
}
