package chat

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/smartcareconnect/smartcare-api/models"
	"github.com/smartcareconnect/smartcare-api/storage"
)

// voiceContentType is what recorders produce and what clips are stored as
const voiceContentType = "audio/wav"

// Party is one side of a conversation
type Party struct {
	ID    string
	Name  string
	Type  models.SenderType
	Email string
}

// Attachment is a file staged for sending
type Attachment struct {
	Name string
	Type string
	Data []byte
}

// Size is the attachment length in bytes
func (a Attachment) Size() int64 {
	return int64(len(a.Data))
}

// ContentType is the declared type, or one sniffed from the data
func (a Attachment) ContentType() string {
	if a.Type != "" {
		return a.Type
	}
	return mimetype.Detect(a.Data).String()
}

// VoiceClip is a finished recording
type VoiceClip struct {
	Data []byte
}

// SendRequest is one message to send
type SendRequest struct {
	AppointmentID string
	Sender        Party
	Recipient     Party
	Text          string
	File          *Attachment
	Voice         *VoiceClip
}

// Send uploads any attachment and voice clip, then stores the message.
// Nothing is stored unless every upload succeeds, blobs uploaded by a failed
// attempt are deleted.
func (s *Synchronizer) Send(ctx context.Context, req SendRequest) (*models.Message, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.File == nil && req.Voice == nil {
		return nil, ErrEmptyMessage
	}
	if req.AppointmentID == "" {
		return nil, ErrMissingAppointment
	}
	if req.File != nil && req.File.Size() > MaxAttachmentSize {
		return nil, ErrFileTooLarge
	}

	now := s.now()
	msg := models.Message{
		ID:             primitive.NewObjectID(),
		AppointmentID:  req.AppointmentID,
		SenderID:       req.Sender.ID,
		SenderName:     req.Sender.Name,
		SenderType:     req.Sender.Type,
		SenderEmail:    req.Sender.Email,
		RecipientID:    req.Recipient.ID,
		RecipientName:  req.Recipient.Name,
		RecipientEmail: req.Recipient.Email,
		Text:           text,
	}

	var (
		mu       sync.Mutex
		uploaded []string
	)
	track := func(path string) {
		mu.Lock()
		uploaded = append(uploaded, path)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	if f := req.File; f != nil {
		g.Go(func() error {
			path := storage.FilePath(req.AppointmentID, f.Name, now)
			contentType := f.ContentType()
			url, err := s.blobs.Upload(gctx, path, bytes.NewReader(f.Data), f.Size(), contentType)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrAttachmentUploadFailed, err)
			}
			track(path)
			msg.File = &models.FileAttachment{URL: url, Name: f.Name, Type: contentType, Size: f.Size()}
			return nil
		})
	}
	var duration int
	if v := req.Voice; v != nil {
		g.Go(func() error {
			path := storage.VoicePath(req.AppointmentID, now)
			url, err := s.blobs.Upload(gctx, path, bytes.NewReader(v.Data), int64(len(v.Data)), voiceContentType)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrVoiceUploadFailed, err)
			}
			track(path)
			msg.VoiceMessage = &models.VoiceMessage{URL: url}
			return nil
		})
		g.Go(func() error {
			duration = s.voiceDuration(gctx, v.Data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(uploaded)
		return nil, err
	}
	if msg.VoiceMessage != nil {
		msg.VoiceMessage.Duration = duration
	}

	ts := primitive.NewDateTimeFromTime(s.now())
	msg.Timestamp = &ts
	if _, err := s.db.InsertOne(ctx, msg); err != nil {
		s.discard(uploaded)
		return nil, fmt.Errorf("store message: %w", err)
	}
	s.log().Infow("message sent", "appointmentId", msg.AppointmentID, "messageId", msg.ID.Hex(),
		"file", msg.File != nil, "voice", msg.VoiceMessage != nil)
	return &msg, nil
}

// voiceDuration probes a clip within VoiceDurationTimeout, 0 when it cannot tell
func (s *Synchronizer) voiceDuration(ctx context.Context, data []byte) int {
	if s.Prober == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, s.VoiceDurationTimeout)
	defer cancel()

	type result struct {
		d   time.Duration
		err error
	}
	ch := make(chan result, 1)
	go func() {
		d, err := s.Prober.Probe(ctx, data)
		ch <- result{d, err}
	}()

	select {
	case <-ctx.Done():
		s.log().Warnw("voice duration probe timed out")
		return 0
	case r := <-ch:
		if r.err != nil || r.d < 0 {
			s.log().Warnw("could not determine voice duration", "error", r.err)
			return 0
		}
		return wholeSeconds(r.d)
	}
}

// discard deletes blobs of a failed send, best effort
func (s *Synchronizer) discard(paths []string) {
	if len(paths) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range paths {
		if err := s.blobs.Delete(ctx, p); err != nil {
			s.log().Warnw("failed to delete orphaned upload", "path", p, "error", err)
		}
	}
}
