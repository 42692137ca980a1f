// Package storage uploads chat attachments and voice clips to a blob store
// and hands back a durable URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/smartcareconnect/smartcare-api/config"
)

const (
	filesPrefix = "chat-files"
	voicePrefix = "voice-messages"
)

// Uploader stores blobs under a path
type Uploader interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}

// FilePath is where an attachment for an appointment is stored
func FilePath(appointmentID, name string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s-%d", filesPrefix, appointmentID, name, at.UnixMilli())
}

// VoicePath is where a voice clip for an appointment is stored
func VoicePath(appointmentID string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%d.wav", voicePrefix, appointmentID, at.UnixMilli())
}

// New returns the uploader selected by conf.BlobBackend
func New(conf *config.Config) (Uploader, error) {
	switch conf.BlobBackend {
	case "", "cloudinary":
		return NewCloudinary(conf.CloudinaryURL)
	case "minio":
		return NewMinio(MinioOptions{
			Endpoint:  conf.MinioEndpoint,
			AccessKey: conf.MinioAccessKey,
			SecretKey: conf.MinioSecretKey,
			Bucket:    conf.MinioBucket,
			UseSSL:    conf.MinioUseSSL,
			PublicURL: conf.MinioPublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", conf.BlobBackend)
	}
}

// Unavailable is an uploader for when no blob store could be set up. Every
// call fails with err.
func Unavailable(err error) Uploader {
	return unavailable{err: err}
}

type unavailable struct {
	err error
}

func (u unavailable) Upload(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", u.err
}

func (u unavailable) Delete(context.Context, string) error {
	return u.err
}
