package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SenderType identifies which side of an appointment wrote a message
type SenderType string

const (
	// SenderPatient is a message written by the patient
	SenderPatient SenderType = "patient"
	// SenderDoctor is a message written by the doctor
	SenderDoctor SenderType = "doctor"
)

// Valid reports whether t is one of the known sender types
func (t SenderType) Valid() bool {
	return t == SenderPatient || t == SenderDoctor
}

// Message holds the structure for the messages collection in mongo
type Message struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id"`
	AppointmentID  string              `json:"appointmentId" bson:"appointmentId"`
	SenderID       string              `json:"senderId" bson:"senderId"`
	SenderName     string              `json:"senderName" bson:"senderName"`
	SenderType     SenderType          `json:"senderType" bson:"senderType"`
	SenderEmail    string              `json:"senderEmail,omitempty" bson:"senderEmail,omitempty"`
	RecipientID    string              `json:"recipientId" bson:"recipientId"`
	RecipientName  string              `json:"recipientName" bson:"recipientName"`
	RecipientEmail string              `json:"recipientEmail,omitempty" bson:"recipientEmail,omitempty"`
	Text           string              `json:"text" bson:"text"`
	File           *FileAttachment     `json:"file,omitempty" bson:"file,omitempty"`
	VoiceMessage   *VoiceMessage       `json:"voiceMessage,omitempty" bson:"voiceMessage,omitempty"`
	Timestamp      *primitive.DateTime `json:"timestamp,omitempty" bson:"timestamp,omitempty"` // nil until the write is acknowledged
	Read           bool                `json:"read" bson:"read"`
}

// FileAttachment is an uploaded file referenced by a message
type FileAttachment struct {
	URL  string `json:"url" bson:"url"`
	Name string `json:"name" bson:"name"`
	Type string `json:"type" bson:"type"`
	Size int64  `json:"size" bson:"size"`
}

// VoiceMessage is an uploaded voice clip referenced by a message
type VoiceMessage struct {
	URL      string `json:"url" bson:"url"`
	Duration int    `json:"duration" bson:"duration"` // whole seconds
}

// HasContent reports whether the message carries text, a file or a voice clip
func (m Message) HasContent() bool {
	return strings.TrimSpace(m.Text) != "" || m.File != nil || m.VoiceMessage != nil
}

// Pending reports whether the store has not yet assigned a timestamp
func (m Message) Pending() bool {
	return m.Timestamp == nil
}

// IsUnreadFor reports whether m is an unread message addressed to the viewer
func (m Message) IsUnreadFor(viewerID, viewerEmail string) bool {
	if m.Read {
		return false
	}
	if viewerID != "" && m.RecipientID == viewerID {
		return true
	}
	return viewerEmail != "" && m.RecipientEmail == viewerEmail
}

// SendMessageRequest is the body of a message post. Multipart posts carry the
// same fields as form values.
type SendMessageRequest struct {
	SenderID       string     `json:"senderId" validate:"required"`
	SenderName     string     `json:"senderName"`
	SenderType     SenderType `json:"senderType" validate:"required,oneof=patient doctor"`
	SenderEmail    string     `json:"senderEmail"`
	RecipientID    string     `json:"recipientId" validate:"required"`
	RecipientName  string     `json:"recipientName"`
	RecipientEmail string     `json:"recipientEmail"`
	Text           string     `json:"text"`
}

// UnreadResponse is the unread indicator of one viewer
type UnreadResponse struct {
	Counts     map[string]int    `json:"counts"`
	Badges     map[string]string `json:"badges"`
	Total      int               `json:"total"`
	TotalBadge string            `json:"totalBadge"`
}
