package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
)

// randomBytes fills b from the system CSPRNG.
func randomBytes(b []byte) (int, error) {
	return io.ReadFull(rand.Reader, b)
}

// GenerateToken returns n random bytes encoded as hex.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := randomBytes(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 digest of a high-entropy token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func constantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// constantTimeEqual compares two strings without leaking their contents through timing.
// Inputs are hashed first so differing lengths take the same path.
func constantTimeEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return constantTimeCompare(ha[:], hb[:])
}
