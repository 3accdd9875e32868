// internal/auth/auth.go
//
// Authentication helpers for the Guess My Color server.
// Responsibilities:
//   - Signing and verifying HS256 JWTs carrying user id + username.
//   - bcrypt password hashing.
//   - Username/password validation rules for signup.

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrUsernameTaken = errors.New("username taken")
	ErrInvalidSignup = errors.New("invalid signup")
)

// Identity is the authenticated principal carried in a token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Tokens signs and verifies JWTs with a shared secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a signer whose tokens expire after days (14 if days <= 0).
func NewTokens(secret string, days int) *Tokens {
	if days <= 0 {
		days = 14
	}
	return &Tokens{
		secret: []byte(secret),
		ttl:    time.Duration(days) * 24 * time.Hour,
		now:    time.Now,
	}
}

// Sign creates a token for id/username and returns it with its expiry.
func (t *Tokens) Sign(id, username string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := tok.SignedString(t.secret)
	return ss, exp, err
}

// Parse verifies a token and extracts the identity.
func (t *Tokens) Parse(tokenStr string) (*Identity, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tk.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{ID: id, Username: username}, nil
}

// HashPassword hashes pw with bcrypt at the default cost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword is a bcrypt verifier.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NormalizeUsername trims whitespace.
func NormalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// Signup limits.
const (
	MinUsername = 3
	MaxUsername = 24
	MinPassword = 8
	MaxPassword = 100
)

// ValidateSignup checks a normalized username and a password. Failures wrap
// ErrInvalidSignup and their message is safe to show to the user.
func ValidateSignup(username, password string) error {
	if n := len(username); n < MinUsername || n > MaxUsername {
		return fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidSignup, MinUsername, MaxUsername)
	}
	if strings.IndexFunc(username, notUsernameRune) >= 0 {
		return fmt.Errorf("%w: username may only contain letters, digits and underscores", ErrInvalidSignup)
	}
	if n := len(password); n < MinPassword || n > MaxPassword {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidSignup, MinPassword, MaxPassword)
	}
	return nil
}

func notUsernameRune(r rune) bool {
	switch {
	case r == '_', r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return false
	}
	return true
}
