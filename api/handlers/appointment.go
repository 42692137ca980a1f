package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/api"
	"github.com/smartcareconnect/smartcare-api/config"
	"github.com/smartcareconnect/smartcare-api/databases"
	"github.com/smartcareconnect/smartcare-api/models"
)

// Appointment exported for testing purposes
type Appointment struct {
	DB databases.AppointmentDatabase
}

// CreateAppointmentHandler books an appointment. Every form field is required.
func (a Appointment) CreateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("All fields are required", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("All fields are required", http.StatusBadRequest, w, err)
		return
	}

	appt := models.Appointment{
		ID:              uuid.New().String(),
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Address:         req.Address,
		PhoneNumber:     req.PhoneNumber,
		Email:           req.Email,
		Age:             req.Age.String(),
		Gender:          req.Gender,
		SelectedDoctor:  req.SelectedDoctor,
		SelectedDisease: req.SelectedDisease,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		Message:         req.Message,
		DoctorID:        req.DoctorID,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	if at, ok := models.ScheduledAt(req.AppointmentDate, req.AppointmentTime); ok {
		appt.ExpirationDate = &at
	} else {
		zap.S().Warnw("appointment date does not parse, reminders will skip it",
			"date", req.AppointmentDate,
			"time", req.AppointmentTime)
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := a.DB.InsertOne(ctx, appt); err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("appointment booked", "appointmentId", appt.ID, "doctor", appt.SelectedDoctor)
	api.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Appointment booked successfully",
		"appointment": appt,
	})
}

// AppointmentsHandler lists appointments of a doctor (doctorId) or a
// patient (email), soonest first
func (a Appointment) AppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	doctorID := r.URL.Query().Get("doctorId")
	email := r.URL.Query().Get("email")

	var filter bson.M
	switch {
	case doctorID != "":
		filter = bson.M{"doctorId": doctorID}
	case email != "":
		filter = bson.M{"email": email}
	default:
		config.ErrorStatus("doctorId or email is required", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := databases.PageOptions(r.URL.Query().Get("limit"), r.URL.Query().Get("page")).
		SetSort(bson.D{{Key: "appointment_date", Value: 1}, {Key: "appointment_time", Value: 1}})
	appts, err := a.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("Internal Server Error", http.StatusInternalServerError, w, err)
		return
	}
	if len(appts) == 0 {
		appts = []models.Appointment{}
	}
	api.WriteJSON(w, http.StatusOK, appts)
}
