package models

// roomPrefix namespaces call rooms so a token for one appointment can never
// be replayed into another
const roomPrefix = "appointment-"

// RoomName derives the call room for an appointment
func RoomName(appointmentID string) string {
	return roomPrefix + appointmentID
}

// CallToken is the body returned by the call token endpoint
type CallToken struct {
	Token     string `json:"token"`
	Identity  string `json:"identity"`
	ExpiresAt int64  `json:"expiresAt"` // epoch seconds
}
