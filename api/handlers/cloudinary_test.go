package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sha1Hex = regexp.MustCompile(`^[0-9a-f]{40}$`)

func sign(t *testing.T, c CloudinaryHandler, query string) UploadSignature {
	t.Helper()
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.GenerateSignature).ServeHTTP(rr, httptest.NewRequest("POST", "/api/uploads/signature"+query, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got UploadSignature
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	return got
}

func TestCloudinaryHandler_GenerateSignature(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	c := CloudinaryHandler{APISecret: "abcd", UploadPreset: "chat", now: func() time.Time { return fixed }}

	got := sign(t, c, "?appointmentId=a1")

	assert.Equal(t, "1700000000", got.Timestamp)
	assert.Equal(t, "chat", got.UploadPreset)
	assert.Equal(t, "chat-files/a1", got.Folder)
	assert.Regexp(t, sha1Hex, got.Signature)

	again := sign(t, c, "?appointmentId=a1")
	assert.Equal(t, got.Signature, again.Signature)

	other := sign(t, c, "?appointmentId=a2")
	assert.NotEqual(t, got.Signature, other.Signature)

	bare := sign(t, CloudinaryHandler{APISecret: "abcd", now: func() time.Time { return fixed }}, "")
	assert.Empty(t, bare.Folder)
	assert.Empty(t, bare.UploadPreset)
	assert.NotEqual(t, got.Signature, bare.Signature)
}

func TestCloudinaryHandler_GenerateSignatureNotConfigured(t *testing.T) {
	rr := httptest.NewRecorder()
	http.HandlerFunc(CloudinaryHandler{}.GenerateSignature).ServeHTTP(rr, httptest.NewRequest("POST", "/api/uploads/signature", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Cloudinary credentials not configured"}`, rr.Body.String())
}
