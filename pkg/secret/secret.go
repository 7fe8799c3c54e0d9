// Package secret hashes and verifies collection admin keys.
package secret

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxKeyLength is the longest key bcrypt accepts.
const MaxKeyLength = 72

// ErrKeyTooLong is returned by Hash for keys over MaxKeyLength bytes.
var ErrKeyTooLong = errors.New("admin key exceeds 72 bytes")

// Hash derives a storable hash for the admin key. Non-positive or out of range
// costs fall back to bcrypt.DefaultCost.
func Hash(key string, cost int) (string, error) {
	if len(key) > MaxKeyLength {
		return "", ErrKeyTooLong
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("hash admin key: %w", err)
	}
	return string(hashed), nil
}

// Matches reports whether key is the secret behind hash. The comparison runs in
// constant time with respect to the key.
func Matches(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
