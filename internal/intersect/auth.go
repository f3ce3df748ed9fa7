package intersect

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the access-token payload issued by the auth frontend.
type TokenClaims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenVerifier resolves a bearer token to a user identifier. Injected so
// handlers can be tested with a static verifier.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// JWTVerifier checks HS256 access tokens.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(raw string) (string, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.TokenType != "access" || claims.UserID == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.UserID, nil
}

type ctxUserIDKey struct{}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserIDKey{}, userID)
}

func userIDFrom(ctx context.Context) string {
	uid, _ := ctx.Value(ctxUserIDKey{}).(string)
	return uid
}
