package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const bridgeTokenTTL = 30 * 24 * time.Hour

// userIDClaims are the claim names the server has used for the user id
var userIDClaims = []string{"id", "_id", "user_id", "userId"}

// Session holds the authenticated user's bearer token. The token is shared
// read-only with the stores; only Login and Logout replace it.
type Session struct {
	mu        sync.RWMutex
	token     string
	userID    string
	expiresAt time.Time
	onLogout  []func()
	now       func() time.Time
}

// NewSession creates an unauthenticated session
func NewSession() *Session {
	return &Session{now: time.Now}
}

// Login installs token and reads the viewer id and expiry from its claims.
// The signature is not checked: only the server can do that. Signing in as
// another user ends the previous session first.
func (s *Session) Login(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}

	userID := ""
	for _, name := range userIDClaims {
		if v, ok := claims[name].(string); ok && v != "" {
			userID = v
			break
		}
	}
	if userID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			userID = sub
		}
	}
	if userID == "" {
		return fmt.Errorf("user id not found in token")
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	if prev := s.UserID(); prev != "" && prev != userID {
		s.Logout()
	}

	s.mu.Lock()
	s.token = token
	s.userID = userID
	s.expiresAt = expiresAt
	s.mu.Unlock()

	log.Info().Str("user_id", userID).Msg("Session started")
	return nil
}

// Logout clears the token and notifies the stores.
func (s *Session) Logout() {
	s.mu.Lock()
	wasAuthenticated := s.token != ""
	s.token = ""
	s.userID = ""
	s.expiresAt = time.Time{}
	listeners := append([]func(){}, s.onLogout...)
	s.mu.Unlock()

	if !wasAuthenticated {
		return
	}
	log.Info().Msg("Session ended")
	for _, fn := range listeners {
		fn()
	}
}

// OnLogout registers fn to run after every logout.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Token returns the bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID returns the viewer's user id, or "" when logged out.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Authenticated reports whether a non-expired token is installed.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

// BridgeAuth issues and validates tokens for the local bridge API
type BridgeAuth struct {
	secret string
}

// NewBridgeAuth creates a bridge authenticator. An empty secret disables it.
func NewBridgeAuth(secret string) *BridgeAuth {
	return &BridgeAuth{secret: secret}
}

// Enabled reports whether bridge requests must carry a token.
func (a *BridgeAuth) Enabled() bool {
	return a != nil && a.secret != ""
}

// GenerateJWT generates a bridge token for a UI client
func (a *BridgeAuth) GenerateJWT(clientID string) (string, error) {
	claims := jwt.MapClaims{
		"client_id": clientID,
		"exp":       time.Now().Add(bridgeTokenTTL).Unix(),
		"iat":       time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(a.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a bridge token and returns the client ID
func (a *BridgeAuth) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.secret), nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	clientID, ok := claims["client_id"].(string)
	if !ok {
		return "", fmt.Errorf("client_id not found in token")
	}

	return clientID, nil
}
