package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// ErrInvalidLength is returned when a non-positive length is requested
var ErrInvalidLength = errors.New("length must be positive")

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// GenerateRandomPassword generates a random password of the given length
// drawn from the base64 URL alphabet, so it is safe in URLs and headers.
func GenerateRandomPassword(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	bytes, err := CryptoRandomBytes(int64(base64.RawURLEncoding.DecodedLen(length) + 1))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes)[:length], nil
}

// SHA256Hex returns the SHA-256 hash of s as a lowercase hex string.
// Intended for use with high-entropy, unguessable values (e.g., randomly
// generated tokens); for such inputs, a salt is not required for security.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
