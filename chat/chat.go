// Package chat keeps an appointment's conversation in sync with the message
// store and sends new messages with their attachments.
package chat

import "errors"

var (
	// ErrEmptyMessage is returned when there is no text, file or voice clip to send
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMissingAppointment is returned when no appointment id is given
	ErrMissingAppointment = errors.New("appointment id is required")
	// ErrFileTooLarge is returned when an attachment exceeds MaxAttachmentSize
	ErrFileTooLarge = errors.New("File size should be less than 10MB")
	// ErrAttachmentUploadFailed aborts a send whose file could not be stored
	ErrAttachmentUploadFailed = errors.New("attachment upload failed")
	// ErrVoiceUploadFailed aborts a send whose voice clip could not be stored
	ErrVoiceUploadFailed = errors.New("voice message upload failed")
	// ErrNotRecording is returned by Stop when no recording is running
	ErrNotRecording = errors.New("not recording")
	// ErrAlreadyRecording is returned by Start while a recording is running
	ErrAlreadyRecording = errors.New("already recording")
	// ErrMicrophoneUnavailable is returned when the microphone cannot be opened
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
)

// MaxAttachmentSize is the largest file that can be attached, 10 MiB
const MaxAttachmentSize = 10 * 1024 * 1024
