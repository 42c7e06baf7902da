package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestIssuer() *Issuer {
	return NewIssuer([]byte("test-secret-at-least-32-bytes-long"), time.Hour, 720*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer()
	userID := uuid.New()

	token, err := issuer.AccessToken(userID, "doctor")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Parse(token, TokenTypeAccess)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("subject = %q, want %q", claims.Subject, userID)
	}
	if claims.Role != "doctor" {
		t.Errorf("role = %q, want doctor", claims.Role)
	}
}

func TestTokenTypeMismatch(t *testing.T) {
	issuer := newTestIssuer()
	userID := uuid.New()

	refresh, err := issuer.RefreshToken(userID, "patient")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := issuer.Parse(refresh, TokenTypeAccess); err == nil {
		t.Error("refresh token accepted as access token")
	}

	access, err := issuer.AccessToken(userID, "patient")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := issuer.Parse(access, TokenTypeRefresh); err == nil {
		t.Error("access token accepted as refresh token")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret-at-least-32-bytes-long"), -time.Minute, -time.Minute)
	token, err := issuer.AccessToken(uuid.New(), "nurse")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Parse(token, TokenTypeAccess); err == nil {
		t.Error("expired token accepted")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := newTestIssuer().AccessToken(uuid.New(), "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other := NewIssuer([]byte("a-completely-different-signing-key"), time.Hour, 720*time.Hour)
	if _, err := other.Parse(token, TokenTypeAccess); err == nil {
		t.Error("token signed with another key accepted")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	issuer := newTestIssuer()
	token, err := issuer.AccessToken(uuid.New(), "patient")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	tampered := parts[0] + ".eyJyb2xlIjoiYWRtaW4ifQ." + parts[2]
	if _, err := issuer.Parse(tampered, TokenTypeAccess); err == nil {
		t.Error("tampered token accepted")
	}
}
