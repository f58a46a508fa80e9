package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"pact-sync-client/internal/services"
)

type contextKey string

const clientIDKey contextKey = "client_id"

// anonymousClient is the client ID used while bridge auth is disabled
const anonymousClient = "local"

// AuthMiddleware creates a middleware for bridge JWT authentication. It lets
// every request through when auth is disabled.
func AuthMiddleware(auth *services.BridgeAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled() {
				ctx := context.WithValue(r.Context(), clientIDKey, anonymousClient)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			clientID, err := auth.ValidateJWT(parts[1])
			if err != nil {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), clientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientID extracts the bridge client ID from context
func GetClientID(ctx context.Context) string {
	clientID, ok := ctx.Value(clientIDKey).(string)
	if !ok {
		return ""
	}
	return clientID
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// ValidateWebSocketToken validates the bridge token from the WebSocket query
// parameter
func ValidateWebSocketToken(token string, auth *services.BridgeAuth) (string, error) {
	if !auth.Enabled() {
		return anonymousClient, nil
	}
	if token == "" {
		return "", fmt.Errorf("token required")
	}
	return auth.ValidateJWT(token)
}
