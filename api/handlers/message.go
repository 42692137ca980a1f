package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/smartcareconnect/smartcare-api/api"
	"github.com/smartcareconnect/smartcare-api/chat"
	"github.com/smartcareconnect/smartcare-api/config"
	"github.com/smartcareconnect/smartcare-api/databases"
	"github.com/smartcareconnect/smartcare-api/models"
)

// multipart bodies carry at most one attachment and one voice clip, plus form fields
const maxMessageBody = 2*chat.MaxAttachmentSize + 1<<20

// Message exported for testing purposes
type Message struct {
	DB   databases.MessageDatabase
	Sync *chat.Synchronizer
}

// MessagesHandler returns every message of an appointment, oldest first
func (m Message) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	msgs, err := m.Sync.Snapshot(ctx, appointmentID)
	if errors.Is(err, chat.ErrMissingAppointment) {
		config.ErrorStatus("appointmentId is required", http.StatusBadRequest, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("Internal server error", http.StatusInternalServerError, w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, msgs)
}

// SendMessageHandler stores a new message. The body is either JSON or a
// multipart form with optional "file" and "voice" parts.
func (m Message) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBody)

	var (
		body  models.SendMessageRequest
		file  *chat.Attachment
		voice *chat.VoiceClip
		err   error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		body, file, voice, err = readMultipartMessage(r)
	} else {
		err = json.NewDecoder(r.Body).Decode(&body)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			config.ErrorStatus(chat.ErrFileTooLarge.Error(), http.StatusRequestEntityTooLarge, w, err)
			return
		}
		config.ErrorStatus("invalid message body", http.StatusBadRequest, w, err)
		return
	}

	body.SenderID = callerID(r, body.SenderID)
	if err := validate.Struct(body); err != nil {
		config.ErrorStatus("senderId, senderType and recipientId are required", http.StatusBadRequest, w, err)
		return
	}

	msg, err := m.Sync.Send(r.Context(), chat.SendRequest{
		AppointmentID: appointmentID,
		Sender: chat.Party{
			ID:    body.SenderID,
			Name:  body.SenderName,
			Type:  body.SenderType,
			Email: body.SenderEmail,
		},
		Recipient: chat.Party{
			ID:    body.RecipientID,
			Name:  body.RecipientName,
			Email: body.RecipientEmail,
		},
		Text:  body.Text,
		File:  file,
		Voice: voice,
	})
	switch {
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMissingAppointment):
		config.ErrorStatus(err.Error(), http.StatusBadRequest, w, err)
		return
	case errors.Is(err, chat.ErrFileTooLarge):
		config.ErrorStatus(err.Error(), http.StatusRequestEntityTooLarge, w, err)
		return
	case err != nil:
		config.ErrorStatus("Failed to send message", http.StatusInternalServerError, w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, msg)
}

// UnreadHandler counts the unread messages addressed to a viewer, per appointment
func (m Message) UnreadHandler(w http.ResponseWriter, r *http.Request) {
	viewer := chat.Viewer{
		ID:    callerID(r, r.URL.Query().Get("viewerId")),
		Email: r.URL.Query().Get("viewerEmail"),
	}
	if viewer.ID == "" && viewer.Email == "" {
		config.ErrorStatus("viewerId or viewerEmail is required", http.StatusBadRequest, w, nil)
		return
	}

	addressed := bson.A{}
	if viewer.ID != "" {
		addressed = append(addressed, bson.M{"recipientId": viewer.ID})
	}
	if viewer.Email != "" {
		addressed = append(addressed, bson.M{"recipientEmail": viewer.Email})
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	msgs, err := m.DB.Find(ctx, bson.M{"read": false, "$or": addressed})
	if err != nil {
		config.ErrorStatus("Internal server error", http.StatusInternalServerError, w, err)
		return
	}

	counts := chat.CountUnread(msgs, viewer)
	badges := make(map[string]string, len(counts))
	for id, n := range counts {
		badges[id] = chat.BadgeText(n)
	}
	total := chat.TotalUnread(counts)
	api.WriteJSON(w, http.StatusOK, models.UnreadResponse{
		Counts:     counts,
		Badges:     badges,
		Total:      total,
		TotalBadge: chat.BadgeText(total),
	})
}

func readMultipartMessage(r *http.Request) (models.SendMessageRequest, *chat.Attachment, *chat.VoiceClip, error) {
	var body models.SendMessageRequest
	if err := r.ParseMultipartForm(chat.MaxAttachmentSize); err != nil {
		return body, nil, nil, err
	}
	body = models.SendMessageRequest{
		SenderID:       r.FormValue("senderId"),
		SenderName:     r.FormValue("senderName"),
		SenderType:     models.SenderType(r.FormValue("senderType")),
		SenderEmail:    r.FormValue("senderEmail"),
		RecipientID:    r.FormValue("recipientId"),
		RecipientName:  r.FormValue("recipientName"),
		RecipientEmail: r.FormValue("recipientEmail"),
		Text:           r.FormValue("text"),
	}

	var file *chat.Attachment
	if f, hdr, err := r.FormFile("file"); err == nil {
		data, err := readPart(f)
		if err != nil {
			return body, nil, nil, err
		}
		contentType := hdr.Header.Get("Content-Type")
		if contentType == "application/octet-stream" {
			// let the attachment sniff it
			contentType = ""
		}
		file = &chat.Attachment{Name: hdr.Filename, Type: contentType, Data: data}
	} else if !errors.Is(err, http.ErrMissingFile) {
		return body, nil, nil, err
	}

	var voice *chat.VoiceClip
	if f, _, err := r.FormFile("voice"); err == nil {
		data, err := readPart(f)
		if err != nil {
			return body, nil, nil, err
		}
		voice = &chat.VoiceClip{Data: data}
	} else if !errors.Is(err, http.ErrMissingFile) {
		return body, nil, nil, err
	}
	return body, file, voice, nil
}

func readPart(f multipart.File) ([]byte, error) {
	defer func() {
		if err := f.Close(); err != nil {
			zap.S().Warnw("failed to close upload part", "error", err)
		}
	}()
	return io.ReadAll(f)
}

// callerID is the authenticated caller's id, or fallback on anonymous requests
func callerID(r *http.Request, fallback string) string {
	if id, ok := api.UserIDFromContext(r.Context()); ok {
		return id
	}
	return fallback
}
