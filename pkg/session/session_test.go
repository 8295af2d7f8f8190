package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fccur/portal/pkg/protocol"
)

func TestFromAuthResponse(t *testing.T) {
	now := time.Now()
	ar := &protocol.AuthResponse{
		Token:        "tok",
		RefreshToken: "ref",
		User:         &protocol.User{Email: "bob@example.edu"},
		ExpiresIn:    3600,
	}

	s := FromAuthResponse(ar, now)
	assert.Equal(t, "tok", s.AccessToken)
	assert.Equal(t, "ref", s.RefreshToken)
	assert.Equal(t, int64(3600), s.ExpiresIn)
	assert.True(t, s.LoginTime.Equal(now))
	assert.True(t, s.complete())
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	s := &Session{AccessToken: token}
	got, ok := s.TokenExpiry()
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
}

func TestTokenExpiry_OpaqueToken(t *testing.T) {
	s := &Session{AccessToken: "not-a-jwt"}
	_, ok := s.TokenExpiry()
	assert.False(t, ok)

	var nilSession *Session
	_, ok = nilSession.TokenExpiry()
	assert.False(t, ok)
}
