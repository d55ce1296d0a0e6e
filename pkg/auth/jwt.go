// Package auth issues and checks the bearer tokens of the ops API.
//
// Staff exchange the admin API key for a short-lived JWT:
//
//	POST /api/token  {"api_key": "..."}  →  {"token": "eyJ..."}
//
// The key itself is never stored, only its bcrypt hash (ADMIN_API_KEY_HASH).
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/shashiranjanraj/beanleaf/config"
)

// RoleStaff is the only role the ops API knows.
const RoleStaff = "staff"

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 12 * time.Hour

var ErrNoSecret = errors.New("auth: JWT_SECRET is not set")

// Claims holds the typed JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func secret() ([]byte, error) {
	s := config.JWTSecret()
	if s == "" {
		return nil, ErrNoSecret
	}
	return []byte(s), nil
}

// GenerateToken creates a signed token for subject.
func GenerateToken(subject, role string) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "beanleaf",
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ValidateToken parses and validates a JWT string.
func ValidateToken(t string) (*Claims, error) {
	key, err := secret()
	if err != nil {
		return nil, err
	}
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// HashAPIKey returns the bcrypt hash to put in ADMIN_API_KEY_HASH.
func HashAPIKey(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckAPIKey compares a bcrypt hash against the presented key. An empty
// hash accepts nothing.
func CheckAPIKey(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
