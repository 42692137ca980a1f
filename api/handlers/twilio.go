package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/api"
	"github.com/smartcareconnect/smartcare-api/config"
	"github.com/smartcareconnect/smartcare-api/models"
	"github.com/smartcareconnect/smartcare-api/ratelimit"
)

// TokenMinter signs call tokens, see twilio.Minter
type TokenMinter interface {
	Mint(identity, appointmentID string) (models.CallToken, error)
}

// Twilio exported for testing purposes
type Twilio struct {
	// Minter is nil when call credentials are not configured
	Minter  TokenMinter
	Limiter ratelimit.Limiter
}

// TokenHandler issues a call token for identity in the appointment's room
func (t Twilio) TokenHandler(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	appointmentID := r.URL.Query().Get("appointmentId")
	if identity == "" || appointmentID == "" {
		config.ErrorStatus("Identity and appointmentId are required", http.StatusBadRequest, w, nil)
		return
	}

	if t.Minter == nil {
		config.ErrorStatus("Twilio credentials not configured", http.StatusInternalServerError, w, nil)
		return
	}

	if t.Limiter != nil {
		key := ratelimit.IdentityKey(identity)
		decision, err := t.Limiter.Allow(r.Context(), key)
		if err != nil {
			// fail open
			zap.S().Warnw("rate limiter unavailable, allowing request", "key", key, "error", err)
		} else {
			setRateLimitHeaders(w, decision)
			if !decision.Allowed {
				retryAfter := ratelimit.RetryAfterSeconds(decision.RetryAfter)
				zap.S().Warnw("call token rate limited", "key", key, "retryAfter", retryAfter)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				api.WriteJSON(w, http.StatusTooManyRequests, models.RateLimitResponse{
					Error:      "Too many token requests, please wait before retrying",
					Code:       "rate_limited",
					RetryAfter: retryAfter,
				})
				return
			}
		}
	}

	tok, err := t.Minter.Mint(identity, appointmentID)
	if err != nil {
		config.ErrorStatus("Failed to generate token", http.StatusInternalServerError, w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, tok)
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.UnixMilli(), 10))
}
