package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// NewOpaqueToken returns a cryptographically random token of byteLength
// raw bytes, base64url-encoded without padding. Tokens carry the full
// entropy of the underlying bytes; callers pick the length per flow.
func NewOpaqueToken(byteLength int) (string, error) {
	if byteLength < 20 {
		return "", errors.New("opaque token must be at least 20 bytes")
	}

	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewNumericChallenge returns a uniformly random zero-padded decimal
// string of the given digit count, drawn digit by digit from the
// crypto/rand source.
func NewNumericChallenge(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid challenge digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	code := b.String()
	if len(code) != digits {
		return "", fmt.Errorf("invalid challenge generation length")
	}
	return code, nil
}

// HashToken returns the sha256 digest of a token for storage-side
// comparison without keeping the plaintext around.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
