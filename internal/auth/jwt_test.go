package auth

import (
	"strings"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", time.Minute, Claims{
		UserID: "user-1",
		Email:  "ada@campus.local",
		Role:   "chairperson",
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseToken("secret", "issuer", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if claims.UserID != "user-1" || claims.Email != "ada@campus.local" || claims.Role != "chairperson" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject to mirror user id, got %s", claims.Subject)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", -time.Minute, Claims{UserID: "user-1", Role: "student"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	_, err = ParseToken("secret", "issuer", token)
	if err == nil {
		t.Fatalf("expected expired token to fail")
	}
	if !IsExpired(err) {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", time.Minute, Claims{UserID: "user-1", Role: "student"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	if _, err := ParseToken("other-secret", "issuer", token); err == nil {
		t.Fatalf("expected wrong secret to fail")
	}
	if _, err := ParseToken("secret", "other-issuer", token); err == nil {
		t.Fatalf("expected wrong issuer to fail")
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	forged, err := NewAccessToken("secret", "issuer", time.Minute, Claims{UserID: "user-1", Role: "admin"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	// payload of the admin token with the signature of the student token
	mixed := parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]
	if _, err := ParseToken("secret", "issuer", mixed); err == nil {
		t.Fatalf("expected tampered payload to fail")
	}
}

func TestMissingSecret(t *testing.T) {
	if _, err := NewAccessToken("", "issuer", time.Minute, Claims{}); err != ErrMissingSecret {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := ParseToken("", "issuer", "x.y.z"); err != ErrMissingSecret {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
