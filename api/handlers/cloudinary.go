package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	cldapi "github.com/cloudinary/cloudinary-go/v2/api"

	"github.com/smartcareconnect/smartcare-api/api"
	"github.com/smartcareconnect/smartcare-api/config"
)

// UploadSignature is what a browser needs for a signed direct upload
type UploadSignature struct {
	Timestamp    string `json:"timestamp"`
	Signature    string `json:"signature"`
	UploadPreset string `json:"uploadPreset,omitempty"`
	Folder       string `json:"folder,omitempty"`
}

// CloudinaryHandler handles Cloudinary related requests
type CloudinaryHandler struct {
	APISecret    string
	UploadPreset string
	now          func() time.Time
}

// GenerateSignature signs the parameters of a direct upload. An optional
// appointmentId scopes the upload to that conversation's folder.
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	if c.APISecret == "" {
		config.ErrorStatus("Cloudinary credentials not configured", http.StatusInternalServerError, w, nil)
		return
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}

	params := url.Values{}
	params.Set("timestamp", strconv.FormatInt(now().Unix(), 10))
	if c.UploadPreset != "" {
		params.Set("upload_preset", c.UploadPreset)
	}
	if appt := r.URL.Query().Get("appointmentId"); appt != "" {
		params.Set("folder", "chat-files/"+appt)
	}

	signature, err := cldapi.SignParameters(params, c.APISecret)
	if err != nil {
		config.ErrorStatus("failed to sign upload", http.StatusInternalServerError, w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, UploadSignature{
		Timestamp:    params.Get("timestamp"),
		Signature:    signature,
		UploadPreset: params.Get("upload_preset"),
		Folder:       params.Get("folder"),
	})
}
