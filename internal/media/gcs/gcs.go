// Package gcs stores product images in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/isokoinfo/marketplace/internal/media"
)

const publicHost = "https://storage.googleapis.com"

// Store implements media.Store on a GCS bucket. Objects are public-read and
// their object name is the public id.
type Store struct {
	client *storage.Client
	bucket string
}

// New connects to GCS. credentialsFile may be empty to use application
// default credentials; extra options are passed through, e.g. an endpoint
// for an emulator.
func New(ctx context.Context, bucket, credentialsFile string, opts ...option.ClientOption) (*Store, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Upload writes the image to folder/<uuid><ext>.
func (s *Store) Upload(ctx context.Context, input *media.UploadInput) (*media.UploadResult, error) {
	name := path.Join(input.Folder, uuid.NewString()+media.Extension(input.ContentType))

	obj := s.client.Bucket(s.bucket).Object(name)
	w := obj.NewWriter(ctx)
	w.ContentType = input.ContentType
	w.CacheControl = "public, max-age=86400"
	w.PredefinedACL = "publicRead"

	if _, err := io.Copy(w, input.Data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("copy image to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish gcs upload: %w", err)
	}

	return &media.UploadResult{URL: ObjectURL(s.bucket, name), PublicID: name}, nil
}

// Destroy deletes the object named publicID.
func (s *Store) Destroy(ctx context.Context, publicID string) error {
	err := s.client.Bucket(s.bucket).Object(publicID).Delete(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%w: %s", media.ErrNotFound, publicID)
		}
		return fmt.Errorf("delete gcs object: %w", err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ObjectURL returns the public URL of an object.
func ObjectURL(bucket, name string) string {
	return fmt.Sprintf("%s/%s/%s", publicHost, bucket, (&url.URL{Path: name}).EscapedPath())
}
