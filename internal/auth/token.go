// Package auth issues and checks the bearer tokens that guard the HTTP API.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenPrefix marks chunkmap API tokens.
	TokenPrefix = "cm_sk_" // #nosec G101 -- a prefix, not a credential

	// TokenPrefixLength is how many secret characters stay visible when masked.
	TokenPrefixLength = 8

	// TokenLength is the random part of a token in bytes, hex encoded.
	TokenLength = 32

	bcryptCost = bcrypt.DefaultCost
)

// GenerateToken returns a new random token of the form cm_sk_<64 hex chars>.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(buf), nil
}

// HashToken returns the bcrypt hash stored in server.tokenHash.
func HashToken(token string) (string, error) {
	secret := strings.TrimPrefix(token, TokenPrefix)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken checks a token against a stored hash.
func VerifyToken(token, hash string) bool {
	if !IsValidTokenFormat(token) {
		return false
	}
	secret := strings.TrimPrefix(token, TokenPrefix)
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// IsValidTokenFormat checks the prefix and the hex secret length.
func IsValidTokenFormat(token string) bool {
	secret, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok || len(secret) != TokenLength*2 {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// MaskToken returns a token safe to print, e.g. cm_sk_a1b2c3d4****...****.
func MaskToken(token string) string {
	if len(token) < len(TokenPrefix)+TokenPrefixLength {
		return "****"
	}
	return token[:len(TokenPrefix)+TokenPrefixLength] + "****...****"
}
