package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/media"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

// ImageUpload is an image file received from a form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// imageStore uploads product images and cleans up after failures.
type imageStore struct {
	store    media.Store
	folder   string
	maxBytes int64
	logger   *slog.Logger
}

func (s *imageStore) validate(img *ImageUpload) error {
	if !media.IsAllowedContentType(img.ContentType) {
		return apperrors.InvalidInput(domain.MsgImageType)
	}
	if s.maxBytes > 0 && img.Size > s.maxBytes {
		return apperrors.InvalidInput(domain.MsgImageTooLarge)
	}
	return nil
}

func (s *imageStore) upload(ctx context.Context, img *ImageUpload) (*media.UploadResult, error) {
	res, err := s.store.Upload(ctx, &media.UploadInput{
		Folder:      s.folder,
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Size:        img.Size,
		Data:        img.Data,
	})
	if err != nil {
		return nil, apperrors.Unavailable("media store", err)
	}
	return res, nil
}

// destroy removes an image that is no longer referenced. A failure leaves
// an orphan in the media store and is logged, never returned.
func (s *imageStore) destroy(ctx context.Context, publicID, reason string) {
	if publicID == "" {
		return
	}
	err := s.store.Destroy(ctx, publicID)
	if errors.Is(err, media.ErrNotFound) {
		s.logger.DebugContext(ctx, "image already gone", slog.String("public_id", publicID))
		return
	}
	if err != nil {
		orphanedImages.Inc()
		s.logger.WarnContext(ctx, "orphaned image left in media store",
			slog.String("public_id", publicID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}
