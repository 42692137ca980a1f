package templates

import (
	"fmt"
	"html"
	"time"

	"github.com/smartcareconnect/smartcare-api/models"
)

const noMessage = "No additional message provided."

// DoctorAppointmentSubject is the subject of the new booking email sent to a doctor
func DoctorAppointmentSubject(d models.PatientDetails) string {
	return fmt.Sprintf("New Appointment: %s %s - %s", d.FirstName, d.LastName, d.AppointmentDate)
}

// PatientAppointmentSubject is the subject of the confirmation email sent to a patient
func PatientAppointmentSubject(d models.PatientDetails) string {
	return fmt.Sprintf("Appointment Confirmation with Dr. %s - %s", d.SelectedDoctor, d.AppointmentDate)
}

// ReminderSubject is the subject of the day-before reminder
func ReminderSubject(a models.Appointment) string {
	return fmt.Sprintf("Reminder: appointment with Dr. %s on %s", a.SelectedDoctor, a.AppointmentDate)
}

// RenderDoctorAppointmentEmail tells a doctor about a new booking
func RenderDoctorAppointmentEmail(d models.PatientDetails) string {
	e := escapeDetails(d)
	body := fmt.Sprintf(`<p style="font-size: 16px;">Dear Dr. %s,</p>
    <p style="font-size: 16px;">You have a new appointment request through SmartCare Connect. Below are the details:</p>
    <div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
      <h3 style="color: %s; margin-top: 0;">Patient Information</h3>
      <p><strong>Name:</strong> %s %s</p>
      <p><strong>Condition:</strong> %s</p>
      <p><strong>Appointment Date:</strong> %s</p>
      <p><strong>Appointment Time:</strong> %s</p>
      <p><strong>Patient Message:</strong> %s</p>
    </div>
    <p style="font-size: 16px;">Please log in to your SmartCare Connect dashboard to confirm or manage this appointment.</p>`,
		e.SelectedDoctor, brandColor, e.FirstName, e.LastName, e.SelectedDisease,
		e.AppointmentDate, e.AppointmentTime, e.Message)
	return layout("New Appointment Booking", body, time.Now().Year())
}

// RenderPatientAppointmentEmail confirms a booking to the patient
func RenderPatientAppointmentEmail(d models.PatientDetails) string {
	e := escapeDetails(d)
	body := fmt.Sprintf(`<p style="font-size: 16px;">Dear %s %s,</p>
    <p style="font-size: 16px;">Thank you for booking your appointment through SmartCare Connect. Your appointment details are confirmed as follows:</p>
    <div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
      <h3 style="color: %s; margin-top: 0;">Appointment Details</h3>
      <p><strong>Doctor:</strong> Dr. %s</p>
      <p><strong>Specialty:</strong> %s</p>
      <p><strong>Date:</strong> %s</p>
      <p><strong>Time:</strong> %s</p>
      <p><strong>Your Message:</strong> %s</p>
    </div>
    <p style="font-size: 16px;">We recommend arriving 15 minutes prior to your scheduled appointment time.</p>
    <p style="font-size: 14px; color: #666;">If you need to reschedule or cancel your appointment, please do so at least 24 hours in advance.</p>`,
		e.FirstName, e.LastName, brandColor, e.SelectedDoctor, e.SelectedDisease,
		e.AppointmentDate, e.AppointmentTime, e.Message)
	return layout("Appointment Confirmation", body, time.Now().Year())
}

// RenderAppointmentReminderEmail reminds a patient of tomorrow's appointment
func RenderAppointmentReminderEmail(a models.Appointment) string {
	body := fmt.Sprintf(`<p style="font-size: 16px;">Dear %s %s,</p>
    <p style="font-size: 16px;">This is a reminder that your appointment with Dr. %s is on <strong>%s</strong> at <strong>%s</strong>.</p>
    <p style="font-size: 16px;">You can chat with your doctor or start a video call from your SmartCare Connect profile.</p>`,
		html.EscapeString(a.FirstName), html.EscapeString(a.LastName), html.EscapeString(a.SelectedDoctor),
		html.EscapeString(a.AppointmentDate), html.EscapeString(a.AppointmentTime))
	return layout("Appointment Reminder", body, time.Now().Year())
}

func escapeDetails(d models.PatientDetails) models.PatientDetails {
	msg := d.Message
	if msg == "" {
		msg = noMessage
	}
	return models.PatientDetails{
		FirstName:       html.EscapeString(d.FirstName),
		LastName:        html.EscapeString(d.LastName),
		SelectedDoctor:  html.EscapeString(d.SelectedDoctor),
		SelectedDisease: html.EscapeString(d.SelectedDisease),
		AppointmentDate: html.EscapeString(d.AppointmentDate),
		AppointmentTime: html.EscapeString(d.AppointmentTime),
		Message:         html.EscapeString(msg),
	}
}
