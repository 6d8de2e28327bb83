package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken represents a signed JWT bearer token along with its expiry.
// Tokens are long-lived (seven days by default) since the sheet editor is
// expected to stay open across sessions; there is no refresh flow.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user. The claims are
// the standard subject (sub, the user ID), expiration (exp) and issued-at
// (iat).
func NewAccessToken(secret string, userID uint64, ttlDays int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewShareToken returns the random token embedded in public share links.
// 16 bytes -> 32 hex chars, unique enough for a unique-indexed column.
func NewShareToken() (string, error) {
	return randomHex(16)
}

// NewResetToken returns a single-use password reset token.
func NewResetToken() (string, error) {
	return randomHex(32)
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
