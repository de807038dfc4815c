package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Digest returns the client side password digest, hex(sha256(plain)).
func Digest(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword bcrypt-hashes a password digest for storage.
func HashPassword(digest string) (string, error) {
	if len(digest) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(digest), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPasswordHash compares a digest with a stored bcrypt hash.
func CheckPasswordHash(digest, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(digest)) == nil
}
