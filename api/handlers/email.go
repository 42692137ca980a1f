package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/smartcareconnect/smartcare-api/api"
	"github.com/smartcareconnect/smartcare-api/config"
	"github.com/smartcareconnect/smartcare-api/email"
	"github.com/smartcareconnect/smartcare-api/models"
)

// Email exported for testing purposes
type Email struct {
	Sender email.Sender
}

// SendEmailHandler notifies the doctor and the patient of a booking
func (e Email) SendEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.DoctorEmail == "" || req.PatientEmail == "" || req.PatientDetails == nil {
		config.ErrorStatus("Doctor's email, patient's email, and patient details are required.", http.StatusBadRequest, w, err)
		return
	}

	if e.Sender == nil {
		config.ErrorStatus("Failed to send email.", http.StatusInternalServerError, w, email.ErrNotConfigured)
		return
	}
	if err := email.NotifyAppointment(r.Context(), e.Sender, req.DoctorEmail, req.PatientEmail, *req.PatientDetails); err != nil {
		config.ErrorStatus("Failed to send email.", http.StatusInternalServerError, w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Emails sent successfully!"})
}
