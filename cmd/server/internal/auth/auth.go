package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, expired, or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRoomNotGranted means the token is valid but does not grant the room.
	ErrRoomNotGranted = errors.New("room not granted by token")
)

// Claims are the room access claims carried in a signed join token. Rooms
// lists the room ids the holder may join; a single "*" entry grants all.
type Claims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Rooms  []string `json:"rooms"`
	jwt.RegisteredClaims
}

// Authorizer decides whether a join signal may enter a room. The websocket
// handler consults it once per join. A nil Claims result with a nil error
// means the caller keeps its self-declared identity (anonymous mode).
type Authorizer interface {
	Authorize(ctx context.Context, token, roomID string) (*Claims, error)
}

// AllowAll admits everyone without inspecting the token. Selected when
// ALLOW_ANONYMOUS is set; validation rejects that in production.
type AllowAll struct{}

func (AllowAll) Authorize(ctx context.Context, token, roomID string) (*Claims, error) {
	return nil, nil
}

// TokenAuthorizer validates HS256 join tokens against a shared secret.
type TokenAuthorizer struct {
	secret []byte
}

// NewTokenAuthorizer creates a token authorizer with the signing secret.
func NewTokenAuthorizer(secret string) *TokenAuthorizer {
	return &TokenAuthorizer{secret: []byte(secret)}
}

// ParseToken verifies the signature and expiry and returns the claims.
func (a *TokenAuthorizer) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authorize checks that the token is valid and grants the room, returning the
// verified claims for the session identity.
func (a *TokenAuthorizer) Authorize(ctx context.Context, tokenStr, roomID string) (*Claims, error) {
	claims, err := a.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	for _, r := range claims.Rooms {
		if r == roomID || r == "*" {
			return claims, nil
		}
	}
	return nil, ErrRoomNotGranted
}

// MintToken signs a join token for the given rooms. Used by tests and the
// operator tooling; the production issuer lives outside this service.
func (a *TokenAuthorizer) MintToken(userID, name string, rooms []string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Name:   name,
		Rooms:  rooms,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(a.secret)
}
