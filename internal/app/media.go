package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/isokoinfo/marketplace/internal/config"
	"github.com/isokoinfo/marketplace/internal/media"
	"github.com/isokoinfo/marketplace/internal/media/cloudinary"
	"github.com/isokoinfo/marketplace/internal/media/gcs"
	"github.com/isokoinfo/marketplace/internal/media/memory"
)

// mediaBackend is the configured image store plus what the app needs to
// check and release it.
type mediaBackend struct {
	store media.Store
	// ping is nil for backends without a cheap reachability check.
	ping  func(context.Context) error
	close func() error
}

func newMediaBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mediaBackend, error) {
	noClose := func() error { return nil }

	switch cfg.MediaBackend {
	case config.MediaCloudinary:
		client, err := cloudinary.New(cloudinary.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			BaseURL:   cfg.CloudinaryBaseURL,
		}, nil, logger)
		if err != nil {
			return nil, err
		}
		return &mediaBackend{store: client, close: noClose}, nil

	case config.MediaGCS:
		store, err := gcs.New(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		return &mediaBackend{store: store, ping: store.Ping, close: store.Close}, nil

	case config.MediaMemory:
		logger.Warn("using in-memory media store; uploaded images are lost on restart")
		return &mediaBackend{
			store: memory.New(fmt.Sprintf("http://localhost:%d/media", cfg.HTTPPort)),
			close: noClose,
		}, nil

	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}
