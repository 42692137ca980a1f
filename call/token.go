package call

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smartcareconnect/smartcare-api/models"
)

// TokenPath is where the API serves call tokens
const TokenPath = "/api/twilio/token"

// DefaultRefreshMargin is how close to expiry a cached token stops being served
const DefaultRefreshMargin = time.Minute

// RateLimitedError is returned when the token endpoint refuses for now
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("call token rate limited, retry after %s", e.RetryAfter)
}

// HTTPTokenSource fetches tokens from the token endpoint
type HTTPTokenSource struct {
	client *resty.Client
}

// NewHTTPTokenSource returns a source calling baseURL. bearer, when set, is
// sent as the Authorization token.
func NewHTTPTokenSource(baseURL, bearer string) *HTTPTokenSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	if bearer != "" {
		client.SetAuthToken(bearer)
	}
	return &HTTPTokenSource{client: client}
}

// Token requests a token for identity in the appointment's room
func (h *HTTPTokenSource) Token(ctx context.Context, identity, appointmentID string) (models.CallToken, error) {
	var tok models.CallToken
	var failure models.RateLimitResponse

	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"identity":      identity,
			"appointmentId": appointmentID,
		}).
		SetResult(&tok).
		SetError(&failure).
		Get(TokenPath)
	if err != nil {
		return models.CallToken{}, fmt.Errorf("request call token: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return models.CallToken{}, &RateLimitedError{RetryAfter: retryAfter(resp, failure)}
	case resp.IsError():
		msg := failure.Error
		if msg == "" {
			msg = resp.Status()
		}
		return models.CallToken{}, fmt.Errorf("call token endpoint returned %d: %s", resp.StatusCode(), msg)
	case tok.Token == "":
		return models.CallToken{}, errors.New("call token endpoint returned no token")
	}
	return tok, nil
}

func retryAfter(resp *resty.Response, body models.RateLimitResponse) time.Duration {
	if body.RetryAfter > 0 {
		return time.Duration(body.RetryAfter) * time.Second
	}
	if secs, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

type tokenKey struct {
	identity      string
	appointmentID string
}

// CachedTokenSource reuses tokens per identity and appointment until they
// come within RefreshMargin of expiring
type CachedTokenSource struct {
	source TokenSource

	RefreshMargin time.Duration

	now   func() time.Time
	mu    sync.Mutex
	cache map[tokenKey]models.CallToken
}

// NewCachedTokenSource wraps src with a cache
func NewCachedTokenSource(src TokenSource) *CachedTokenSource {
	return &CachedTokenSource{
		source:        src,
		RefreshMargin: DefaultRefreshMargin,
		now:           time.Now,
		cache:         map[tokenKey]models.CallToken{},
	}
}

// Token returns a cached token when it is still fresh, otherwise fetches one
func (c *CachedTokenSource) Token(ctx context.Context, identity, appointmentID string) (models.CallToken, error) {
	key := tokenKey{identity: identity, appointmentID: appointmentID}

	c.mu.Lock()
	tok, ok := c.cache[key]
	if ok && !c.fresh(tok) {
		delete(c.cache, key)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		return tok, nil
	}

	tok, err := c.source.Token(ctx, identity, appointmentID)
	if err != nil {
		return models.CallToken{}, err
	}
	if c.fresh(tok) {
		c.mu.Lock()
		c.cache[key] = tok
		c.mu.Unlock()
	}
	return tok, nil
}

func (c *CachedTokenSource) fresh(tok models.CallToken) bool {
	return time.Unix(tok.ExpiresAt, 0).Sub(c.now()) > c.RefreshMargin
}
