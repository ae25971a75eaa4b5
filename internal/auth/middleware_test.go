package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func guarded(t *testing.T, mgr *JWTManager) (http.Handler, *string) {
	t.Helper()
	var operator string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator = OperatorFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})
	return Middleware(mgr)(inner), &operator
}

func TestMiddlewareAdmitsOperator(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	token, err := mgr.GenerateOperatorToken("balance-team", 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	h, operator := guarded(t, mgr)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }},
		{"query parameter", func(r *http.Request) { r.URL.RawQuery = "token=" + token }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*operator = ""
			req := httptest.NewRequest(http.MethodPost, "/api/v1/simulations", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusAccepted {
				t.Fatalf("expected 202, got %d", rec.Code)
			}
			if *operator != "balance-team" {
				t.Errorf("expected operator=balance-team, got %q", *operator)
			}
		})
	}
}

func TestMiddlewareRejections(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	expired, _ := mgr.GenerateOperatorToken("ops", -time.Minute)
	foreign, _ := NewJWTManager("other-secret").GenerateOperatorToken("ops", 0)
	h, _ := guarded(t, mgr)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", ErrMissingToken.Error()},
		{"wrong scheme", "Token abc123", "invalid authorization format"},
		{"bearer only", "Bearer", "invalid authorization format"},
		{"empty value", "Bearer  ", "invalid authorization format"},
		{"garbage", "Bearer invalid.jwt.token", ErrInvalidToken.Error()},
		{"wrong secret", "Bearer " + foreign, ErrInvalidToken.Error()},
		{"expired", "Bearer " + expired, ErrExpiredToken.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/civilizations/spread", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != authChallenge {
				t.Errorf("expected challenge %q, got %q", authChallenge, got)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != tt.want {
				t.Errorf("expected error %q, got %q", tt.want, body["error"])
			}
		})
	}
}

func TestOperatorFromContextEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/simulations/current", nil)
	if op := OperatorFromContext(req.Context()); op != "" {
		t.Errorf("expected no operator without auth, got %s", op)
	}
}
