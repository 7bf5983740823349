package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

// NewQRToken returns 32 random bytes, hex encoded.
func NewQRToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
