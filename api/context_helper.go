package api

import (
	"context"
	"time"
)

const (
	// QueryTimeout bounds a single database call made while serving a request
	QueryTimeout = 10 * time.Second
	// BackgroundTimeout bounds work that outlives its request, like emails
	BackgroundTimeout = 30 * time.Second
)

// WithQueryTimeout derives a query context from the request context
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// Detached returns a context that keeps the request's values but is not
// cancelled when the request ends, bounded by BackgroundTimeout
func Detached(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(parent), BackgroundTimeout)
}
