package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

func newTestSigner(t *testing.T, mutate func(*config.JWTConfig)) *Signer {
	t.Helper()
	cfg := config.JWTConfig{Secret: "secret", Issuer: "ecofinds", ExpirationMinutes: 30}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewSigner(cfg)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return s
}

func TestMintAndParseRoundTripsIdentity(t *testing.T) {
	s := newTestSigner(t, nil)
	now := time.Now().UTC()
	joined := now.Add(-48 * time.Hour).Truncate(time.Second)

	token, expires, err := s.Mint(now, "jti-1", Identity{UID: "uid-1", Email: "a@b.co", DisplayName: "Ana", Username: "ana", CreatedAt: joined})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := expires.Sub(now); got != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", got)
	}

	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID != "jti-1" {
		t.Fatalf("expected jti-1 got %q", claims.ID)
	}
	id := claims.Identity()
	if id.UID != "uid-1" || id.Email != "a@b.co" || id.Username != "ana" || id.DisplayName != "Ana" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if !id.CreatedAt.Equal(joined) {
		t.Fatalf("expected created at %v, got %v", joined, id.CreatedAt)
	}
}

func TestIdentityFallsBackToDisplayNameAndIssueTime(t *testing.T) {
	issued := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Claims{UID: "u", DisplayName: "Ben", RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(issued)}}

	id := c.Identity()
	if id.Username != "Ben" || !id.CreatedAt.Equal(issued) {
		t.Fatalf("unexpected fallback identity %+v", id)
	}
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	s := newTestSigner(t, nil)

	expired, _, err := s.Mint(time.Now().Add(-2*time.Hour), "j", Identity{UID: "uid-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := s.Parse(expired); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}

	foreign := newTestSigner(t, func(c *config.JWTConfig) { c.Secret = "other" })
	token, _, _ := foreign.Mint(time.Now(), "j", Identity{UID: "uid-1"})
	if _, err := s.Parse(token); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}

	elsewhere := newTestSigner(t, func(c *config.JWTConfig) { c.Issuer = "someone-else" })
	token, _, _ = elsewhere.Mint(time.Now(), "j", Identity{UID: "uid-1"})
	if _, err := s.Parse(token); err == nil || !strings.Contains(err.Error(), "issuer") {
		t.Fatalf("expected issuer mismatch, got %v", err)
	}
}

func TestParseRejectsMissingUID(t *testing.T) {
	s := newTestSigner(t, nil)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "ecofinds",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Parse(token); !errors.Is(err, ErrMissingUID) {
		t.Fatalf("expected missing uid, got %v", err)
	}
}

func TestSignerValidatesInput(t *testing.T) {
	if _, err := NewSigner(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := NewSigner(config.JWTConfig{Secret: "x", Issuer: "x"}); err == nil {
		t.Fatalf("expected ttl error")
	}
	s := newTestSigner(t, nil)
	if _, _, err := s.Mint(time.Now(), "j", Identity{}); err == nil {
		t.Fatalf("expected missing uid error")
	}
	if _, _, err := s.Mint(time.Now(), " ", Identity{UID: "u"}); err == nil {
		t.Fatalf("expected missing jti error")
	}
}
