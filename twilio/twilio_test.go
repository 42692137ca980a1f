package twilio

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{AccountSID: "AC123", APIKey: "SK456", APISecret: "shh"}

func TestNewMinter(t *testing.T) {
	_, err := NewMinter(Credentials{AccountSID: "AC123", APIKey: "SK456"}, time.Hour)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	m, err := NewMinter(testCreds, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, m.ttl)
}

func TestMinter_Mint(t *testing.T) {
	m, err := NewMinter(testCreds, time.Hour)
	require.NoError(t, err)
	issued := time.Unix(1760000000, 0)
	m.now = func() time.Time { return issued }

	tok, err := m.Mint("u1-device", "a1")
	require.NoError(t, err)
	assert.Equal(t, "u1-device", tok.Identity)
	assert.Equal(t, issued.Add(time.Hour).Unix(), tok.ExpiresAt)

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(tok.Token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("shh"), nil
	}, jwt.WithTimeFunc(func() time.Time { return issued.Add(time.Minute) }))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "twilio-fpa;v=1", parsed.Header["cty"])
	assert.Equal(t, "HS256", parsed.Header["alg"])
	assert.Equal(t, "SK456-1760000000", claims.ID)
	assert.Equal(t, "SK456", claims.Issuer)
	assert.Equal(t, "AC123", claims.Subject)
	assert.Equal(t, "u1-device", claims.Grants.Identity)
	require.NotNil(t, claims.Grants.Video)
	assert.Equal(t, "appointment-a1", claims.Grants.Video.Room)
}

func TestMinter_TokenExpires(t *testing.T) {
	m, err := NewMinter(testCreds, time.Hour)
	require.NoError(t, err)
	issued := time.Unix(1760000000, 0)
	m.now = func() time.Time { return issued }

	tok, err := m.Mint("u1", "a1")
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(tok.Token, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte("shh"), nil
	}, jwt.WithTimeFunc(func() time.Time { return issued.Add(61 * time.Minute) }))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
