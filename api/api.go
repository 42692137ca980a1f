package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/config"
)

// WriteJSON writes v as the response body with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		zap.S().Warnw("failed to write response", "error", err)
	}
}

// NotFoundHandler answers unknown routes with a JSON body
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
	})
}

// MethodNotAllowed answers a known path called with the wrong method. allowed
// is sent back in the Allow header.
func MethodNotAllowed(allowed ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": fmt.Sprintf("Method %s Not Allowed", r.Method),
		})
	})
}

// HandleMethods registers h for methods on path, and a 405 for everything else
func HandleMethods(r *mux.Router, path string, h http.Handler, methods ...string) {
	r.Handle(path, h).Methods(methods...)
	r.Handle(path, MethodNotAllowed(methods...))
}
