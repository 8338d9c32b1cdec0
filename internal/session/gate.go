// Package session implements the session gate: it issues, validates and
// revokes the bearer tokens callers present, and resolves them to validated
// identities. The bidding engine never sees a raw token.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"auction-house/internal/domain"
)

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Gate is a JWT-backed domain.SessionGate. Tokens are only valid while they
// are present in the active-token store, so Revoke takes effect immediately
// instead of waiting for JWT expiry.
type Gate struct {
	secret []byte
	ttl    time.Duration
	tokens domain.TokenStore
	clock  domain.Clock
}

func NewGate(secret string, ttl time.Duration, tokens domain.TokenStore, clock domain.Clock) *Gate {
	return &Gate{
		secret: []byte(secret),
		ttl:    ttl,
		tokens: tokens,
		clock:  clock,
	}
}

func (g *Gate) Issue(ctx context.Context, identity domain.Identity) (string, error) {
	now := g.clock.Now()
	claims := Claims{
		Username: identity.Username,
		Role:     string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	if err := g.tokens.Add(ctx, signed, g.ttl); err != nil {
		return "", err
	}
	return signed, nil
}

func (g *Gate) Validate(ctx context.Context, tokenStr string) (domain.Identity, error) {
	active, err := g.tokens.Contains(ctx, tokenStr)
	if err != nil {
		return domain.Identity{}, err
	}
	if !active {
		return domain.Identity{}, domain.ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.clock.Now))
	if err != nil {
		return domain.Identity{}, domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Identity{}, domain.ErrTokenInvalid
	}

	return domain.Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     domain.Role(claims.Role),
	}, nil
}

func (g *Gate) Revoke(ctx context.Context, tokenStr string) error {
	return g.tokens.Remove(ctx, tokenStr)
}
