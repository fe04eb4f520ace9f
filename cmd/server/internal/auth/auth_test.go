package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAuthorizeGrantsListedRoom(t *testing.T) {
	a := NewTokenAuthorizer(testSecret)
	tok, err := a.MintToken("u1", "Dana", []string{"standup", "retro"}, time.Hour)
	require.NoError(t, err)

	claims, err := a.Authorize(context.Background(), tok, "retro")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Dana", claims.Name)
}

func TestAuthorizeRejectsUnlistedRoom(t *testing.T) {
	a := NewTokenAuthorizer(testSecret)
	tok, err := a.MintToken("u1", "Dana", []string{"standup"}, time.Hour)
	require.NoError(t, err)

	_, err = a.Authorize(context.Background(), tok, "board-meeting")
	assert.ErrorIs(t, err, ErrRoomNotGranted)
}

func TestWildcardGrantsAnyRoom(t *testing.T) {
	a := NewTokenAuthorizer(testSecret)
	tok, err := a.MintToken("admin", "Ops", []string{"*"}, time.Hour)
	require.NoError(t, err)

	_, err = a.Authorize(context.Background(), tok, "any-room-at-all")
	assert.NoError(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	a := NewTokenAuthorizer(testSecret)
	tok, err := a.MintToken("u1", "Dana", []string{"standup"}, -time.Minute)
	require.NoError(t, err)

	_, err = a.Authorize(context.Background(), tok, "standup")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestWrongSecretRejected(t *testing.T) {
	minter := NewTokenAuthorizer("another-secret-another-secret-32b")
	tok, err := minter.MintToken("u1", "Dana", []string{"standup"}, time.Hour)
	require.NoError(t, err)

	a := NewTokenAuthorizer(testSecret)
	_, err = a.Authorize(context.Background(), tok, "standup")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	a := NewTokenAuthorizer(testSecret)
	_, err := a.Authorize(context.Background(), "not-a-jwt", "standup")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAllowAllIgnoresToken(t *testing.T) {
	claims, err := AllowAll{}.Authorize(context.Background(), "", "standup")
	assert.NoError(t, err)
	assert.Nil(t, claims)
}
