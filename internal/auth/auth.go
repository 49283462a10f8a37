package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "session"

// DefaultTokenTTL matches the lifetime of an interview session.
const DefaultTokenTTL = 24 * time.Hour

var ErrSessionMismatch = errors.New("token does not grant access to this session")

// Session is the identity carried by a session token.
type Session struct {
	ID        string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

var (
	authConfig *AuthConfig
)

type AuthConfig struct {
	JwtSecret []byte
	TokenTTL  time.Duration
	Enabled   bool
}

// InitializeAuth sets up the auth configuration
func InitializeAuth(jwtSecret string, tokenTTL time.Duration, enabled bool) {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	authConfig = &AuthConfig{
		JwtSecret: []byte(jwtSecret),
		TokenTTL:  tokenTTL,
		Enabled:   enabled,
	}
}

// IsAuthEnabled returns whether authentication is enabled
func IsAuthEnabled() bool {
	if authConfig == nil {
		return false
	}
	return authConfig.Enabled
}

// GenerateJWT issues a token scoped to one session.
func GenerateJWT(sessionID string) (string, time.Time, error) {
	if authConfig == nil {
		return "", time.Time{}, errors.New("auth not initialized")
	}
	if sessionID == "" {
		return "", time.Time{}, errors.New("session id is required")
	}

	now := time.Now()
	expires := now.Add(authConfig.TokenTTL)
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(authConfig.JwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateJWT validates and parses a JWT token
func ValidateJWT(tokenString string) (*Session, error) {
	if authConfig == nil {
		return nil, errors.New("auth not initialized")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return authConfig.JwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.SessionID != "" {
		s := &Session{ID: claims.SessionID}
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
		return s, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// OptionalAuthMiddleware extracts and validates JWT from request if auth is enabled
// If auth is disabled, it allows all requests through
func OptionalAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// If auth is disabled, just pass through
		if !IsAuthEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := bearerToken(r)
		if tokenString == "" {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		session, err := ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid authentication token", http.StatusUnauthorized)
			return
		}

		// Add session to request context
		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Authorize checks that the request's token, if auth is enabled, was issued
// for sessionID.
func Authorize(r *http.Request, sessionID string) error {
	if !IsAuthEnabled() {
		return nil
	}
	s := GetSessionFromContext(r)
	if s == nil || s.ID != sessionID {
		return ErrSessionMismatch
	}
	return nil
}

// SessionFromRequest validates the request's token when one is present.
// It returns nil, nil for requests without a token.
func SessionFromRequest(r *http.Request) (*Session, error) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		return nil, nil
	}
	return ValidateJWT(tokenString)
}

// GetSessionFromContext extracts the session from request context
func GetSessionFromContext(r *http.Request) *Session {
	if s, ok := r.Context().Value(SessionContextKey).(*Session); ok {
		return s
	}
	return nil
}

func bearerToken(r *http.Request) string {
	// Try Authorization header first
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	// Try cookie
	if cookie, err := r.Cookie("session_token"); err == nil {
		return cookie.Value
	}
	return ""
}
