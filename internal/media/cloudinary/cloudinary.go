// Package cloudinary stores product images in Cloudinary through the
// official upload SDK.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	sdk "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/isokoinfo/marketplace/internal/media"
	"github.com/isokoinfo/marketplace/pkg/httpclient"
)

const serviceName = "cloudinary"

// Config holds Cloudinary account settings.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	// BaseURL overrides the API host, e.g. for tests.
	BaseURL string
}

// Client implements media.Store against the Cloudinary upload API. Calls go
// through a circuit breaker and are never retried.
type Client struct {
	cld    *sdk.Cloudinary
	logger *slog.Logger
}

// New creates a Cloudinary client using hc for transport.
func New(cfg Config, hc *http.Client, logger *slog.Logger) (*Client, error) {
	cld, err := sdk.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("configure cloudinary: %w", err)
	}
	if cfg.BaseURL != "" {
		cld.Upload.Config.API.UploadPrefix = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.MaxRetries = 0

	var base *httpclient.Client
	if hc != nil {
		base = httpclient.NewWithHTTPClient(hc, clientCfg)
	} else {
		base = httpclient.New(clientCfg)
	}
	breaker := httpclient.NewCircuitBreakerTransport(base, httpclient.DefaultCircuitBreakerConfig(serviceName), logger)
	cld.Upload.Client = *breaker.HTTPClient()

	return &Client{cld: cld, logger: logger}, nil
}

// Upload stores the image under input.Folder.
func (c *Client) Upload(ctx context.Context, input *media.UploadInput) (*media.UploadResult, error) {
	res, err := c.cld.Upload.Upload(ctx, input.Data, uploader.UploadParams{
		Folder:       input.Folder,
		ResourceType: "image",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" || res.PublicID == "" {
		return nil, errors.New("cloudinary upload: response missing secure_url or public_id")
	}

	c.logger.DebugContext(ctx, "image uploaded", slog.String("public_id", res.PublicID))
	return &media.UploadResult{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

// Destroy deletes the image with publicID.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	switch res.Result {
	case "ok":
		return nil
	case "not found":
		return fmt.Errorf("%w: %s", media.ErrNotFound, publicID)
	default:
		return fmt.Errorf("cloudinary destroy: unexpected result %q", res.Result)
	}
}
