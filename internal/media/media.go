// Package media defines the contract of the external image store product
// pictures live in.
package media

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned by Destroy when the store has no such image.
var ErrNotFound = errors.New("media not found")

// Store uploads and destroys product images.
type Store interface {
	// Upload stores an image under folder and returns where it is served.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Destroy removes the image identified by publicID.
	Destroy(ctx context.Context, publicID string) error
}

// UploadInput holds the parameters for uploading an image.
type UploadInput struct {
	Folder      string
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	// URL is the HTTPS address the image is served from.
	URL string
	// PublicID is the store's identifier, used to destroy the image.
	PublicID string
}

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// IsAllowedContentType reports whether contentType is an accepted image type.
func IsAllowedContentType(contentType string) bool {
	_, ok := allowedContentTypes[normalize(contentType)]
	return ok
}

// Extension returns the file extension for an accepted image type.
func Extension(contentType string) string {
	if ext, ok := allowedContentTypes[normalize(contentType)]; ok {
		return ext
	}
	return ".bin"
}

func normalize(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "image/jpg" {
		return "image/jpeg"
	}
	return ct
}
