package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/smartcareconnect/smartcare-api/models"
)

// MessageSender sends a finished message
type MessageSender interface {
	Send(ctx context.Context, req SendRequest) (*models.Message, error)
}

// Envelope addresses a draft
type Envelope struct {
	AppointmentID string
	Sender        Party
	Recipient     Party
}

// Composer holds the draft of one conversation: text, at most one staged
// file and at most one staged voice clip
type Composer struct {
	sender   MessageSender
	recorder *Recorder

	mu   sync.Mutex
	text string
	file *Attachment
	clip *VoiceClip
}

// NewComposer returns an empty draft that records from mic
func NewComposer(sender MessageSender, mic Microphone) *Composer {
	return &Composer{sender: sender, recorder: NewRecorder(mic)}
}

// SetText replaces the draft text
func (c *Composer) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
}

// Text is the draft text
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// StageFile replaces the staged file. Files over MaxAttachmentSize are
// rejected and the previous file stays staged.
func (c *Composer) StageFile(a Attachment) error {
	if a.Size() > MaxAttachmentSize {
		return ErrFileTooLarge
	}
	if a.Type == "" {
		a.Type = a.ContentType()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = &a
	return nil
}

// ClearFile drops the staged file
func (c *Composer) ClearFile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = nil
}

// StartRecording starts capturing a voice clip
func (c *Composer) StartRecording(ctx context.Context) error {
	return c.recorder.Start(ctx)
}

// StopRecording stages the captured clip in place of any earlier one
func (c *Composer) StopRecording() error {
	clip, err := c.recorder.Stop()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clip = clip
	return nil
}

// Recording reports whether a capture is running
func (c *Composer) Recording() bool {
	return c.recorder.State() == RecorderRecording
}

// DiscardClip drops the staged clip
func (c *Composer) DiscardClip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clip = nil
}

// Staged returns the staged file and clip
func (c *Composer) Staged() (*Attachment, *VoiceClip) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file, c.clip
}

// Submit sends the draft. Whatever was sent is cleared on success, on
// failure the draft is left as it was.
func (c *Composer) Submit(ctx context.Context, env Envelope) (*models.Message, error) {
	c.mu.Lock()
	text, file, clip := c.text, c.file, c.clip
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" && file == nil && clip == nil {
		return nil, ErrEmptyMessage
	}

	msg, err := c.sender.Send(ctx, SendRequest{
		AppointmentID: env.AppointmentID,
		Sender:        env.Sender,
		Recipient:     env.Recipient,
		Text:          text,
		File:          file,
		Voice:         clip,
	})
	if err != nil {
		return nil, err
	}

	// edits made while sending survive
	c.mu.Lock()
	if c.text == text {
		c.text = ""
	}
	if c.file == file {
		c.file = nil
	}
	if c.clip == clip {
		c.clip = nil
	}
	c.mu.Unlock()
	return msg, nil
}
