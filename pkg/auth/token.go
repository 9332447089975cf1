package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

const clockSkew = 5 * time.Second

var signingMethod = jwt.SigningMethodHS256

var ErrMissingUID = errors.New("token missing uid")

// Signer mints and verifies HS256 access tokens for a single issuer.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewSigner(cfg config.JWTConfig) (*Signer, error) {
	switch {
	case cfg.Secret == "":
		return nil, fmt.Errorf("jwt secret is required")
	case cfg.Issuer == "":
		return nil, fmt.Errorf("jwt issuer is required")
	case cfg.AccessTokenTTL() <= 0:
		return nil, fmt.Errorf("jwt expiration minutes must be positive")
	}
	return &Signer{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: cfg.AccessTokenTTL()}, nil
}

func (s *Signer) TTL() time.Duration { return s.ttl }

// Mint signs a token for id under the given jti and returns it with its
// expiry.
func (s *Signer) Mint(now time.Time, jti string, id Identity) (string, time.Time, error) {
	if strings.TrimSpace(id.UID) == "" {
		return "", time.Time{}, fmt.Errorf("uid is required")
	}
	if strings.TrimSpace(jti) == "" {
		return "", time.Time{}, fmt.Errorf("jti is required")
	}

	expires := now.Add(s.ttl)
	claims := Claims{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Username:    id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        jti,
		},
	}
	if !id.CreatedAt.IsZero() {
		claims.Joined = id.CreatedAt.Unix()
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing jwt: %w", err)
	}
	return signed, expires.UTC(), nil
}

// Parse verifies signature, issuer and expiry.
func (s *Signer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		strings.TrimSpace(token),
		claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return nil, err
	}
	if claims.UID == "" {
		return nil, ErrMissingUID
	}
	return claims, nil
}
