// Package twilio mints Twilio Video access tokens.
package twilio

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smartcareconnect/smartcare-api/models"
)

// ErrMissingCredentials is returned when any of the account sid, api key or
// api secret is empty
var ErrMissingCredentials = errors.New("twilio credentials not configured")

// DefaultTTL is how long a call token stays valid
const DefaultTTL = time.Hour

const contentType = "twilio-fpa;v=1"

// Credentials are the account and api key pair tokens are signed with
type Credentials struct {
	AccountSID string
	APIKey     string
	APISecret  string
}

// Complete reports whether every field is set
func (c Credentials) Complete() bool {
	return c.AccountSID != "" && c.APIKey != "" && c.APISecret != ""
}

// VideoGrant scopes a token to one room
type VideoGrant struct {
	Room string `json:"room,omitempty"`
}

// Grants is the grants claim of an access token
type Grants struct {
	Identity string      `json:"identity"`
	Video    *VideoGrant `json:"video,omitempty"`
}

// AccessClaims are the claims of a Twilio access token
type AccessClaims struct {
	Grants Grants `json:"grants"`
	jwt.RegisteredClaims
}

// Minter signs call tokens
type Minter struct {
	creds Credentials
	ttl   time.Duration
	now   func() time.Time
}

// NewMinter returns a minter, or ErrMissingCredentials
func NewMinter(creds Credentials, ttl time.Duration) (*Minter, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Minter{creds: creds, ttl: ttl, now: time.Now}, nil
}

// Mint returns a token for identity limited to the appointment's room
func (m *Minter) Mint(identity, appointmentID string) (models.CallToken, error) {
	now := m.now()
	exp := now.Add(m.ttl)

	claims := AccessClaims{
		Grants: Grants{
			Identity: identity,
			Video:    &VideoGrant{Room: models.RoomName(appointmentID)},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d", m.creds.APIKey, now.Unix()),
			Issuer:    m.creds.APIKey,
			Subject:   m.creds.AccountSID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = contentType

	signed, err := token.SignedString([]byte(m.creds.APISecret))
	if err != nil {
		return models.CallToken{}, fmt.Errorf("sign call token: %w", err)
	}
	return models.CallToken{
		Token:     signed,
		Identity:  identity,
		ExpiresAt: exp.Unix(),
	}, nil
}
