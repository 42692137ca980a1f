package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartcareconnect/smartcare-api/databases"
)

// TokenTTL is how long an issued bearer token stays valid
const TokenTTL = 24 * time.Hour

type ctxKey int

const (
	userIDKey ctxKey = iota
	requestIDKey
)

// MiddlewareDB holds the account stores credentials are checked against
type MiddlewareDB struct {
	Users   databases.UserDatabase
	Doctors databases.DoctorDatabase
}

var authenticator auth.Authenticator
var cache store.Cache

// Middleware rejects requests without a valid bearer token or basic
// credentials and puts the caller's id in the request context
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := authenticator.Authenticate(r)
		if err != nil {
			zap.S().Warnw("unauthorized",
				"url", r.URL.String())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		zap.S().Debugf("User %s Authenticated", user.UserName())
		ctx := context.WithValue(r.Context(), userIDKey, user.ID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the id of the authenticated caller
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SetupGoGuardian sets up the go-guardian middleware
func (m MiddlewareDB) SetupGoGuardian() {
	authenticator = auth.New()
	cache = store.NewFIFO(context.Background(), TokenTTL)
	basicStrategy := basic.New(m.ValidateUser, cache)
	tokenStrategy := bearer.New(bearer.NoOpAuthenticate, cache)

	authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// ValidateUser checks email and password against patients, then doctors
func (m MiddlewareDB) ValidateUser(ctx context.Context, r *http.Request, email, password string) (auth.Info, error) {
	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	if m.Users != nil {
		if u, err := m.Users.FindOne(ctx, bson.M{"email": email}); err == nil {
			if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
				return nil, errors.New("invalid credentials")
			}
			return auth.NewDefaultUser(email, u.ID, nil, nil), nil
		}
	}
	if m.Doctors != nil {
		if d, err := m.Doctors.FindOne(ctx, bson.M{"email": email}); err == nil {
			if bcrypt.CompareHashAndPassword([]byte(d.Password), []byte(password)) != nil {
				return nil, errors.New("invalid credentials")
			}
			return auth.NewDefaultUser(email, d.ID, nil, nil), nil
		}
	}
	return nil, fmt.Errorf("no account for %s", email)
}

// IssueToken creates a bearer token for an account that already proved its
// password and returns it
func IssueToken(r *http.Request, email, id string) string {
	token := uuid.New().String()
	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Append(tokenStrategy, token, auth.NewDefaultUser(email, id, nil, nil), r); err != nil {
		zap.S().Errorw("failed to cache token", "error", err)
	}
	return token
}

// RevokeToken revokes the bearer token the request was made with
func RevokeToken(w http.ResponseWriter, r *http.Request) {
	reqToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if reqToken == "" || reqToken == r.Header.Get("Authorization") {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "bearer token is required"})
		return
	}

	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Revoke(tokenStrategy, reqToken, r); err != nil {
		zap.S().Warnw("failed to revoke token", "error", err)
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
