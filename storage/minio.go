package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures the S3 compatible backend
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL overrides scheme://endpoint when building object urls
	PublicURL string
}

// Minio stores blobs in a single bucket
type Minio struct {
	client *minio.Client
	opts   MinioOptions
}

// NewMinio builds an uploader for an S3 compatible endpoint. No request is made.
func NewMinio(opts MinioOptions) (*Minio, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}
	return &Minio{client: client, opts: opts}, nil
}

// Upload puts r into the bucket under path
func (m *Minio) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	info, err := m.client.PutObject(ctx, m.opts.Bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return m.PublicURL(info.Key), nil
}

// Delete removes the object stored under path
func (m *Minio) Delete(ctx context.Context, path string) error {
	err := m.client.RemoveObject(ctx, m.opts.Bucket, path, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PublicURL is the url an object is served from
func (m *Minio) PublicURL(key string) string {
	base := strings.TrimRight(m.opts.PublicURL, "/")
	if base == "" {
		protocol := "http"
		if m.opts.UseSSL {
			protocol = "https"
		}
		base = fmt.Sprintf("%s://%s", protocol, m.opts.Endpoint)
	}
	return fmt.Sprintf("%s/%s/%s", base, m.opts.Bucket, key)
}
