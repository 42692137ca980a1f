package models

// ErrorResponse is the body written for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// RateLimitResponse is written with a 429 so callers can back off specifically
type RateLimitResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retryAfter"` // seconds
}

// HealthCheckResponse returns the health check response duh
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
