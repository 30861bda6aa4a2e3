package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 12 * time.Hour

var (
	ErrInvalidPIN   = errors.New("invalid pin")
	ErrInvalidToken = errors.New("invalid token")
)

// Tokens issues and verifies parent bearer tokens.
type Tokens struct {
	secret []byte
}

// NewTokens creates a token signer from the configured secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

type claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for the parent, valid for 12 hours.
func (t *Tokens) Issue(parentID, parentName string, now time.Time) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: parentName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   parentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})
	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the parent's identity.
func (t *Tokens) Verify(tokenString string) (AuthContext, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(tokenString, &c, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !tok.Valid {
		return AuthContext{}, ErrInvalidToken
	}
	return AuthContext{ParentID: c.Subject, ParentName: c.Name}, nil
}

// HashPIN bcrypt-hashes a parent PIN for storage.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// VerifyPIN checks a PIN against its stored bcrypt hash.
func VerifyPIN(hash, pin string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) != nil {
		return ErrInvalidPIN
	}
	return nil
}
