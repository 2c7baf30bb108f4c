package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

var ErrInvalidSecret = errors.New("invalid secret")

// NewSecret returns a fresh random secret, URL-safe and unpadded.
func NewSecret() string {
	return mustToken()
}

// HashSecret hashes secret with bcrypt. A cost of 0 selects bcrypt.DefaultCost.
func HashSecret(secret string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret returns ErrInvalidSecret unless secret matches hash.
func VerifySecret(hash, secret string) error {
	if hash == "" || secret == "" {
		return ErrInvalidSecret
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) != nil {
		return ErrInvalidSecret
	}
	return nil
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
