package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func TestJWTIssueAndValidate(t *testing.T) {
	auth := NewAuthService(testSecret)

	token, err := auth.IssueJWT("ci", []string{"scott"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	principal, err := auth.ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if principal.Subject != "ci" {
		t.Errorf("Subject: got %q, want ci", principal.Subject)
	}
	if len(principal.Schemas) != 1 || principal.Schemas[0] != "scott" {
		t.Errorf("Schemas: got %v", principal.Schemas)
	}
	if time.Until(principal.ExpiresAt) <= 0 {
		t.Errorf("ExpiresAt in the past: %v", principal.ExpiresAt)
	}
}

func TestJWTExpired(t *testing.T) {
	auth := NewAuthService(testSecret)

	// Issue a token with negative TTL (already expired)
	token, err := auth.IssueJWT("ci", nil, -1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	if _, err := auth.ValidateJWT(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTInvalidToken(t *testing.T) {
	auth := NewAuthService(testSecret)

	if _, err := auth.ValidateJWT("garbage.token.here"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewAuthService(testSecret).IssueJWT("ci", nil, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	other := NewAuthService("another-secret-at-least-32-bytes-long")
	if _, err := other.ValidateJWT(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestJWTForeignIssuer(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "ci",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewAuthService(testSecret).ValidateJWT(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestJWTNoSecret(t *testing.T) {
	auth := NewAuthService("")
	if _, err := auth.IssueJWT("ci", nil, time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Errorf("IssueJWT: expected ErrNoSecret, got %v", err)
	}
	if _, err := auth.ValidateJWT("x.y.z"); !errors.Is(err, ErrNoSecret) {
		t.Errorf("ValidateJWT: expected ErrNoSecret, got %v", err)
	}
}

func TestJWTSubjectRequired(t *testing.T) {
	if _, err := NewAuthService(testSecret).IssueJWT("", nil, time.Hour); err == nil {
		t.Fatal("expected error for empty subject")
	}
}

func TestPrincipalCanReflect(t *testing.T) {
	open := &Principal{Subject: "ci"}
	if !open.CanReflect("hr") {
		t.Error("unrestricted principal should reflect every schema")
	}

	scoped := &Principal{Subject: "ci", Schemas: []string{"SCOTT"}}
	if !scoped.CanReflect("scott") {
		t.Error("schema names should compare case-insensitively")
	}
	if scoped.CanReflect("hr") {
		t.Error("scoped principal reflected hr")
	}
}
