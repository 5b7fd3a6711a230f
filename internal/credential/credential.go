// Package credential validates and persists the payments provider API key.
package credential

import (
	"fmt"
	"strings"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

const minKeyLength = 20

var allowedPrefixes = []string{"sk_", "ak_"}

// Validate checks the key's shape only. Whether the provider accepts it is
// decided by the first authenticated request.
func Validate(key string) error {
	if key == "" {
		return fmt.Errorf("Validate: empty key: %w", domain.ErrCredentialInvalid)
	}
	if len(key) < minKeyLength {
		return fmt.Errorf("Validate: key shorter than %d characters: %w", minKeyLength, domain.ErrCredentialInvalid)
	}
	if !HasKnownPrefix(key) {
		return fmt.Errorf("Validate: key must start with sk_ or ak_: %w", domain.ErrCredentialInvalid)
	}
	for _, r := range key {
		if !allowedRune(r) {
			return fmt.Errorf("Validate: key contains invalid character %q: %w", r, domain.ErrCredentialInvalid)
		}
	}
	return nil
}

func HasKnownPrefix(key string) bool {
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Mask keeps the prefix and the last four characters: sk_****abcd.
func Mask(key string) string {
	if len(key) < 8 {
		return "****"
	}
	return key[:3] + "****" + key[len(key)-4:]
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}
