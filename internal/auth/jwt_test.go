package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateOperatorToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	token, err := mgr.GenerateOperatorToken("balance-team", 0)
	if err != nil {
		t.Fatalf("generate operator token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Operator != "balance-team" {
		t.Errorf("expected operator=balance-team, got %s", claims.Operator)
	}
	if claims.Subject != "balance-team" {
		t.Errorf("expected subject=balance-team, got %s", claims.Subject)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= DefaultTokenExpiry-time.Minute || ttl > DefaultTokenExpiry {
		t.Errorf("expected default expiry near %v, got %v", DefaultTokenExpiry, ttl)
	}
}

func TestCustomTTL(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	token, err := mgr.GenerateOperatorToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl > time.Hour {
		t.Errorf("expected ttl <= 1h, got %v", ttl)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr1 := NewJWTManager("secret-one")
	mgr2 := NewJWTManager("secret-two")

	token, err := mgr1.GenerateOperatorToken("ops", 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = mgr2.ValidateToken(token)
	if err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	_, err := mgr.ValidateToken("not-a-jwt")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage token, got %v", err)
	}
	_, err = mgr.ValidateToken("")
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken for empty token, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	token, err := mgr.GenerateOperatorToken("ops", -time.Second)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = mgr.ValidateToken(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestForeignIssuerRejected(t *testing.T) {
	secret := "test-secret"
	claims := &Claims{
		Operator: "ops",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "someone-else",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewJWTManager(secret).ValidateToken(token); err == nil {
		t.Error("expected token from another issuer to be rejected")
	}
}

func TestDifferentOperatorsGetDifferentTokens(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	t1, _ := mgr.GenerateOperatorToken("alice", 0)
	t2, _ := mgr.GenerateOperatorToken("bob", 0)
	if t1 == t2 {
		t.Error("different operators should get different tokens")
	}
}
