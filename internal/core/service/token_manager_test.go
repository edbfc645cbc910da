package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

func testUser() *domain.User {
	return &domain.User{ID: 42, Username: "lena", Role: domain.RoleAgent, IsActive: true}
}

func TestTokenManager_Defaults(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: "s"})
	if m.accessTTL != 5*time.Minute || m.refreshTTL != 24*time.Hour {
		t.Fatalf("unexpected default ttls: %v %v", m.accessTTL, m.refreshTTL)
	}
}

func TestTokenManager_SessionRoundTrip(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: "s", Issuer: "caseperl"})
	session, err := m.Session(testUser())
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	id, err := m.ParseAccessToken(session.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if id.ID != 42 || id.Username != "lena" || id.Role != domain.RoleAgent {
		t.Fatalf("unexpected identity: %+v", id)
	}

	claims, err := m.parseRefresh(session.RefreshToken)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if claims.ID == "" || claims.Subject != "42" {
		t.Fatalf("refresh claims missing jti or subject: %+v", claims)
	}
}

func TestTokenManager_UniqueJTI(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: "s"})
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, err := m.issueRefresh(testUser())
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if seen[tok.claims.ID] {
			t.Fatalf("duplicate jti %s", tok.claims.ID)
		}
		seen[tok.claims.ID] = true
	}
}

func TestTokenManager_RejectsWrongType(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: "s"})
	session, _ := m.Session(testUser())

	if _, err := m.ParseAccessToken(session.RefreshToken); !errors.Is(err, errWrongTokenType) {
		t.Fatalf("expected errWrongTokenType, got %v", err)
	}
	if _, err := m.parseRefresh(session.AccessToken); !errors.Is(err, errWrongTokenType) {
		t.Fatalf("expected errWrongTokenType, got %v", err)
	}
}

func TestTokenManager_RejectsForeignSignatureAndIssuer(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: "s", Issuer: "caseperl"})
	other := NewTokenManager(TokenConfig{Secret: "other", Issuer: "caseperl"})
	wrongIssuer := NewTokenManager(TokenConfig{Secret: "s", Issuer: "someone-else"})

	forged, _ := other.Session(testUser())
	if _, err := m.ParseAccessToken(forged.AccessToken); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature error, got %v", err)
	}

	foreign, _ := wrongIssuer.Session(testUser())
	if _, err := m.ParseAccessToken(foreign.AccessToken); !errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		t.Fatalf("expected issuer error, got %v", err)
	}
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: "s"})
	claims := &tokenClaims{
		UserID:    1,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.ParseAccessToken(raw); err == nil {
		t.Fatalf("unsigned token must be rejected")
	}
}

func TestTokenManager_Expiry(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: "s", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issuedAt }
	session, _ := m.Session(testUser())

	m.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	if _, err := m.ParseAccessToken(session.AccessToken); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired access token, got %v", err)
	}
	claims, err := m.parseRefresh(session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh should still be valid: %v", err)
	}
	if got := m.remaining(claims); got != 58*time.Minute {
		t.Fatalf("expected 58m remaining, got %v", got)
	}

	m.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	if _, err := m.parseRefresh(session.RefreshToken); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired refresh token, got %v", err)
	}
}

func TestTokenManager_RemainingFloor(t *testing.T) {
	m := NewTokenManager(TokenConfig{Secret: "s"})
	now := time.Now().UTC()
	m.now = func() time.Time { return now }
	claims := &tokenClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(100 * time.Millisecond))}}
	if got := m.remaining(claims); got != time.Second {
		t.Fatalf("expected 1s floor, got %v", got)
	}
}
