package usecase

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	apiKeyPrefixLen   = 8
	apiKeyStampDigits = 4
	apiKeyRandomBytes = 6
	fallbackKeyPrefix = "tenant"
)

// DeriveAPIKey builds a tenant key from the company name and a timestamp:
// up to eight lower-case alphanumerics of the name, "_", then the last four
// digits of the epoch millisecond value.
func DeriveAPIKey(companyName string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	if len(stamp) > apiKeyStampDigits {
		stamp = stamp[len(stamp)-apiKeyStampDigits:]
	}
	return apiKeyPrefix(companyName) + "_" + stamp
}

// randomAPIKey is used when the derived key collides with an existing tenant.
func randomAPIKey(companyName string) (string, error) {
	b := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix(companyName) + "_" + hex.EncodeToString(b), nil
}

func apiKeyPrefix(companyName string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(companyName) {
		if sb.Len() == apiKeyPrefixLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return fallbackKeyPrefix
	}
	return sb.String()
}
