package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identify the organization (org) and user (sub) behind a request.
type Claims struct {
	Org string `json:"org"`
	jwt.RegisteredClaims
}

type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth { return &Auth{secret: []byte(secret)} }

// IssueToken signs an HS256 token for user inside org.
func (a *Auth) IssueToken(org uuid.UUID, user string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Org: org.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "costeo",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates the token and returns its organization and user.
func (a *Auth) Parse(token string) (uuid.UUID, string, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	if !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	org, err := uuid.Parse(claims.Org)
	if err != nil || org == uuid.Nil {
		return uuid.Nil, "", errors.New("token without organization")
	}
	return org, claims.Subject, nil
}

type userKey struct{}

func withUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

func userFrom(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}
