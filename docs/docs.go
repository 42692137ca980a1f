// Package docs SmartCare Connect API.
//
// Documentation of the SmartCare Connect hospital portal API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//     - multipart/form-data
//
//     Produces:
//     - application/json
//
//     Security:
//     - bearer
//
//    SecurityDefinitions:
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/smartcareconnect/smartcare-api/api/handlers"
	"github.com/smartcareconnect/smartcare-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /api/messages/{appointmentId} messages messagesByAppointment
// Lists the messages of one appointment, oldest first. Messages still waiting
// for a server timestamp come last.
// responses:
//   200: messagesResponse
//   400: errorResponse

// The conversation of an appointment
// swagger:response messagesResponse
type messagesResponseWrapper struct {
	// in:body
	Body []models.Message
}

// swagger:route POST /api/messages/{appointmentId} messages sendMessage
// Sends a message with optional file and voice parts.
// responses:
//   201: messageResponse
//   400: errorResponse
//   413: errorResponse

// The stored message
// swagger:response messageResponse
type messageResponseWrapper struct {
	// in:body
	Body models.Message
}

// swagger:route GET /api/messages/unread messages unreadMessages
// Counts unread messages addressed to the viewer, per appointment.
// responses:
//   200: unreadResponse

// Unread counts and badge text
// swagger:response unreadResponse
type unreadResponseWrapper struct {
	// in:body
	Body models.UnreadResponse
}

// swagger:route GET /api/twilio/token calls callToken
// Issues a video call token for one appointment's room.
// responses:
//   200: callTokenResponse
//   400: errorResponse
//   429: rateLimitResponse

// A signed call token
// swagger:response callTokenResponse
type callTokenResponseWrapper struct {
	// in:body
	Body models.CallToken
}

// Too many token requests for one user
// swagger:response rateLimitResponse
type rateLimitResponseWrapper struct {
	// in:body
	Body models.RateLimitResponse
}

// swagger:route POST /api/uploads/signature uploads uploadSignature
// Signs a direct browser upload into the appointment's folder.
// responses:
//   200: uploadSignatureResponse

// Upload signature parameters
// swagger:response uploadSignatureResponse
type uploadSignatureResponseWrapper struct {
	// in:body
	Body handlers.UploadSignature
}

// swagger:route GET /api/appointments appointments appointmentsList
// Lists the appointments of a doctor or of a patient email.
// responses:
//   200: appointmentsResponse

// Appointments sorted by date and time
// swagger:response appointmentsResponse
type appointmentsResponseWrapper struct {
	// in:body
	Body []models.Appointment
}

// swagger:route GET /api/check-unique doctors checkUnique
// Reports whether a doctor sign up field value is still free.
// responses:
//   200: uniqueResponse

// Availability of a field value
// swagger:response uniqueResponse
type uniqueResponseWrapper struct {
	// in:body
	Body handlers.UniqueResponse
}

// A failed request
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorResponse
}
