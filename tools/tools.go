package tools

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

func EncryptTextSHA512(text string) string {
	sum := sha512.Sum512([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NewLinkToken returns n random bytes, URL-safe base64 encoded without padding.
func NewLinkToken(n int) (string, error) {
	if n <= 0 {
		n = 24
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("link token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashLinkToken is the form a link token is stored and looked up by.
func HashLinkToken(token string) string {
	return EncryptTextSHA512(token)
}

// ISO formats t in UTC with a trailing Z, microsecond precision when present.
func ISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
}
