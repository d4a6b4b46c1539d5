package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Tokens gate account activation, so everything here draws from crypto/rand.

// RandomToken returns a hex string of 2*byteLength characters. Used for
// verification tokens and for degraded-mode fallback identity ids.
func RandomToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = 16
	}
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RandomPassword returns an alphanumeric password long enough to satisfy the
// identity provider's minimum policy. Non-alphanumeric base64 characters are
// stripped, so extra bytes are drawn until the target length is reached.
func RandomPassword(byteLength int) (string, error) {
	if byteLength < 8 {
		byteLength = 8
	}
	var b strings.Builder
	for b.Len() < byteLength {
		buf := make([]byte, byteLength)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		encoded := base64.StdEncoding.EncodeToString(buf)
		for _, r := range encoded {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
				if b.Len() == byteLength {
					break
				}
			}
		}
	}
	return b.String(), nil
}
