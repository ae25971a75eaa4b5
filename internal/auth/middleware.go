package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/freeeve/civ-balance/api/internal/logger"
)

type contextKey string

const operatorKey contextKey = "operator"

const authChallenge = `Bearer realm="civsim"`

// TokenFromRequest returns the operator token from a Bearer Authorization
// header, falling back to the ?token= query parameter used by WebSocket
// clients that cannot set headers.
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return "", errors.New("invalid authorization format")
		}
		return strings.TrimSpace(token), nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// Authenticate validates the request's operator token and returns the operator.
func Authenticate(jwtMgr *JWTManager, r *http.Request) (string, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return "", err
	}
	claims, err := jwtMgr.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.Operator, nil
}

// Middleware guards simulation controls (start, cancel, spread changes) behind
// an operator token and stores the operator name in the request context.
func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator, err := Authenticate(jwtMgr, r)
			if err != nil {
				logger.FromContext(r.Context()).Warn().Err(err).
					Str("method", r.Method).Str("path", r.URL.Path).Msg("Operator rejected")
				Unauthorized(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), operator)))
		})
	}
}

// Unauthorized writes a 401 JSON error carrying the Bearer challenge.
func Unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", authChallenge)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// WithOperator returns a context carrying the authenticated operator name.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey, operator)
}

// OperatorFromContext extracts the authenticated operator from the request context.
func OperatorFromContext(ctx context.Context) string {
	op, _ := ctx.Value(operatorKey).(string)
	return op
}
