package api

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMethods(t *testing.T) {
	r := mux.NewRouter()
	HandleMethods(r, "/things", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"method": r.Method})
	}), "GET", "POST")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("POST", "/things", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"method":"POST"}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("PATCH", "/things", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
	assert.JSONEq(t, `{"error":"Method PATCH Not Allowed"}`, rr.Body.String())
}

func TestNotFoundHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NotFoundHandler().ServeHTTP(rr, httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rr.Body.String())
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	var seen string
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/api/doctors", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rr.Header().Get(RequestIDHeader))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/doctors", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
}

func TestLoggingMiddleware_SkipsHealth(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))

	assert.Empty(t, rr.Header().Get(RequestIDHeader))
}

func TestTimeoutMiddleware(t *testing.T) {
	h := TimeoutMiddleware(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slow") != "" {
			time.Sleep(300 * time.Millisecond)
			w.Write([]byte("too late"))
			return
		}
		w.Header().Set("X-Handler", "yes")
		WriteJSON(w, http.StatusCreated, map[string]string{"ok": "true"})
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/doctors", nil))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "yes", rr.Header().Get("X-Handler"))
	assert.JSONEq(t, `{"ok":"true"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/doctors?slow=1", nil))
	assert.Equal(t, http.StatusRequestTimeout, rr.Code)
	assert.JSONEq(t, `{"error":"Request timeout"}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "too late")
}

func TestTimeoutMiddleware_Panic(t *testing.T) {
	h := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	})
}

func TestMiddleware(t *testing.T) {
	MiddlewareDB{}.SetupGoGuardian()
	var caller string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/twilio/token", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rr.Body.String())

	login := httptest.NewRequest("POST", "/api/login", nil)
	token := IssueToken(login, "asha@example.com", "u1")
	require.NotEmpty(t, token)

	req := httptest.NewRequest("GET", "/api/twilio/token", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", caller)

	logout := httptest.NewRequest("POST", "/api/logout", nil)
	logout.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	RevokeToken(rr, logout)
	assert.JSONEq(t, `{"message":"Logged out"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_UnknownBasicCredentials(t *testing.T) {
	MiddlewareDB{}.SetupGoGuardian()
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/messages/a1", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("ghost@example.com:pw")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRevokeToken_RequiresBearer(t *testing.T) {
	MiddlewareDB{}.SetupGoGuardian()
	rr := httptest.NewRecorder()
	RevokeToken(rr, httptest.NewRequest("POST", "/api/logout", strings.NewReader("")))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
