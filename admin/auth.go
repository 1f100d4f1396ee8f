package admin

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const apiKeyHeader = "X-API-Key"

var (
	// ErrMissingCredentials indicates no API key or bearer token was sent.
	ErrMissingCredentials = errors.New("admin: missing credentials")

	// ErrInvalidCredentials indicates the API key or token did not verify.
	ErrInvalidCredentials = errors.New("admin: invalid credentials")
)

// authenticator validates admin requests. Stored API keys are SHA-256
// hashes so a config dump never leaks usable secrets.
type authenticator struct {
	keyHashes [][]byte
	jwtSecret []byte
}

func newAuthenticator(apiKeys []string, jwtSecret string) *authenticator {
	a := &authenticator{}
	for _, key := range apiKeys {
		if key == "" {
			continue
		}
		a.keyHashes = append(a.keyHashes, hashKey(key))
	}
	if jwtSecret != "" {
		a.jwtSecret = []byte(jwtSecret)
	}
	return a
}

// enabled reports whether any credential source is configured. With none
// configured the admin surface is open, which is only sane behind a
// trusted network boundary.
func (a *authenticator) enabled() bool {
	return len(a.keyHashes) > 0 || len(a.jwtSecret) > 0
}

func (a *authenticator) authenticate(r *http.Request) error {
	if !a.enabled() {
		return nil
	}

	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		if a.verifyAPIKey(key) {
			return nil
		}
		return ErrInvalidCredentials
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if a.verifyToken(strings.TrimPrefix(auth, "Bearer ")) {
			return nil
		}
		return ErrInvalidCredentials
	}

	return ErrMissingCredentials
}

func (a *authenticator) verifyAPIKey(key string) bool {
	provided := hashKey(key)
	for _, hash := range a.keyHashes {
		if subtle.ConstantTimeCompare(provided, hash) == 1 {
			return true
		}
	}
	return false
}

func (a *authenticator) verifyToken(raw string) bool {
	if len(a.jwtSecret) == 0 {
		return false
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return false
	}
	return token.Valid
}

func hashKey(key string) []byte {
	hash := sha256.Sum256([]byte(key))
	return []byte(hex.EncodeToString(hash[:]))
}

// requireAuth wraps a handler with credential checks.
func (a *authenticator) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.authenticate(r); err != nil {
			status := http.StatusUnauthorized
			writeError(w, status, err.Error())
			return
		}
		next(w, r)
	}
}
