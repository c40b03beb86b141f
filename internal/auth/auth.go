// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth verifies admin credentials and issues the bearer tokens
// that protect the application management API.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// TokenLifetime is how long an admin session token stays valid.
	TokenLifetime = 8 * time.Hour

	// PBKDF2Iterations is the iteration count for password hashing.
	// OWASP recommends 600,000+ for PBKDF2-SHA-256.
	PBKDF2Iterations = 600000

	// SaltSize is the salt length for password hashing (32 bytes).
	SaltSize = 32

	// KeySize is the derived key length (32 bytes / 256 bits).
	KeySize = 32

	// hashScheme tags encoded password hashes.
	hashScheme = "pbkdf2-sha256"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTOTPRequired       = errors.New("one-time code required")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrMissingSecret      = errors.New("signing secret is not configured")
)

// =============================================================================
// AUTHENTICATOR
// =============================================================================

// Config carries the admin credential material. When PasswordHash is
// set it wins over the plaintext Password fallback.
type Config struct {
	Username     string
	Password     string
	PasswordHash string
	TOTPSecret   string
	JWTSecret    string
}

// Authenticator checks admin logins and signs session tokens.
type Authenticator struct {
	username     string
	password     string
	passwordHash string
	totpSecret   string
	jwtSecret    []byte

	now func() time.Time
}

// New builds an Authenticator from cfg.
func New(cfg Config) (*Authenticator, error) {
	if cfg.Username == "" {
		return nil, errors.New("admin username is not configured")
	}
	if cfg.Password == "" && cfg.PasswordHash == "" {
		return nil, errors.New("admin password is not configured")
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return &Authenticator{
		username:     cfg.Username,
		password:     cfg.Password,
		passwordHash: cfg.PasswordHash,
		totpSecret:   cfg.TOTPSecret,
		jwtSecret:    []byte(cfg.JWTSecret),
		now:          time.Now,
	}, nil
}

// TOTPEnabled reports whether logins need a second factor.
func (a *Authenticator) TOTPEnabled() bool {
	return a.totpSecret != ""
}

// Login verifies the credential set and returns a signed session token.
// The one-time code is only consulted when a TOTP secret is configured.
func (a *Authenticator) Login(username, password, totpCode string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := a.verifyPassword(password)
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}

	if a.totpSecret != "" {
		if totpCode == "" {
			return "", ErrTOTPRequired
		}
		if !totp.Validate(totpCode, a.totpSecret) {
			return "", ErrInvalidCredentials
		}
	}

	return a.issueToken(username)
}

// VerifyToken validates a session token and returns its subject.
func (a *Authenticator) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// issueToken signs an HS256 token for the subject.
func (a *Authenticator) issueToken(subject string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}

// verifyPassword compares in constant time against the hash when one
// is configured, falling back to the plaintext credential otherwise.
func (a *Authenticator) verifyPassword(password string) bool {
	if a.passwordHash != "" {
		ok, err := VerifyPassword(password, a.passwordHash)
		return err == nil && ok
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
}

// =============================================================================
// PASSWORD HASHING
// =============================================================================

// HashPassword derives a salted PBKDF2-SHA-256 hash in the encoded
// form scheme$iterations$salt$hash.
func HashPassword(password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeySize, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", hashScheme, PBKDF2Iterations,
		hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// VerifyPassword checks password against an encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != hashScheme {
		return false, fmt.Errorf("malformed password hash")
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, fmt.Errorf("malformed password hash")
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("malformed password hash")
	}
	want, err := hex.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("malformed password hash")
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
