package models

import (
	"encoding/json"
	"time"
)

// Appointment holds the structure for the appoinments collection in mongo
type Appointment struct {
	ID              string     `json:"id" bson:"_id"`
	FirstName       string     `json:"first_name" bson:"first_name"`
	LastName        string     `json:"last_name" bson:"last_name"`
	Address         string     `json:"address" bson:"address"`
	PhoneNumber     string     `json:"phone_number" bson:"phone_number"`
	Email           string     `json:"email" bson:"email"`
	Age             string     `json:"age" bson:"age"`
	Gender          string     `json:"gender" bson:"gender"`
	SelectedDoctor  string     `json:"selected_doctor" bson:"selected_doctor"`
	SelectedDisease string     `json:"selected_disease" bson:"selected_disease"`
	AppointmentDate string     `json:"appointment_date" bson:"appointment_date"`
	AppointmentTime string     `json:"appointment_time" bson:"appointment_time"`
	Message         string     `json:"message" bson:"message"`
	DoctorID        string     `json:"doctorId,omitempty" bson:"doctorId,omitempty"`
	ExpirationDate  *time.Time `json:"expirationDate,omitempty" bson:"expirationDate,omitempty"`
	CreatedAt       string     `json:"created_at" bson:"created_at"`
	ReminderSent    bool       `json:"reminderSent" bson:"reminderSent"`
}

// AppointmentRequest is the booking form body. Every field is required.
type AppointmentRequest struct {
	FirstName       string      `json:"firstName" validate:"required"`
	LastName        string      `json:"lastName" validate:"required"`
	Address         string      `json:"address" validate:"required"`
	PhoneNumber     string      `json:"phoneNumber" validate:"required"`
	Email           string      `json:"email" validate:"required"`
	Age             json.Number `json:"age" validate:"required"`
	Gender          string      `json:"gender" validate:"required"`
	SelectedDoctor  string      `json:"selectedDoctor" validate:"required"`
	SelectedDisease string      `json:"selectedDisease" validate:"required"`
	AppointmentDate string      `json:"appointmentDate" validate:"required"`
	AppointmentTime string      `json:"appointmentTime" validate:"required"`
	Message         string      `json:"message" validate:"required"`
	DoctorID        string      `json:"doctorId"`
}

// AppointmentDateLayout is the layout of appointment_date + " " + appointment_time
const AppointmentDateLayout = "2006-01-02 15:04"

// ScheduledAt parses the appointment date and time. ok is false when the
// stored strings do not follow AppointmentDateLayout.
func ScheduledAt(date, clock string) (t time.Time, ok bool) {
	t, err := time.Parse(AppointmentDateLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PatientDetails is the appointment summary sent in notification emails
type PatientDetails struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	SelectedDoctor  string `json:"selectedDoctor"`
	SelectedDisease string `json:"selectedDisease"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	Message         string `json:"message"`
}

// EmailRequest is the body of the send-email endpoint
type EmailRequest struct {
	DoctorEmail    string          `json:"doctorEmail"`
	PatientEmail   string          `json:"patientEmail"`
	PatientDetails *PatientDetails `json:"patientDetails"`
}
