package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/isokoinfo/marketplace/internal/media"
)

// Image is an image held by the in-memory store.
type Image struct {
	PublicID    string
	ContentType string
	Data        []byte
	URL         string
}

// Store implements media.Store in memory. It is meant for tests and local
// development.
type Store struct {
	mu      sync.RWMutex
	images  map[string]*Image
	baseURL string

	// FailUploads and FailDestroys make the respective calls return an
	// error, for exercising failure paths.
	FailUploads  bool
	FailDestroys bool
}

// New creates a new in-memory store serving URLs under baseURL.
func New(baseURL string) *Store {
	return &Store{
		images:  make(map[string]*Image),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Upload reads the image into memory.
func (s *Store) Upload(_ context.Context, input *media.UploadInput) (*media.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUploads {
		return nil, fmt.Errorf("memory store: upload failed")
	}

	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	publicID := input.Folder + "/" + uuid.NewString()
	img := &Image{
		PublicID:    publicID,
		ContentType: input.ContentType,
		Data:        data,
		URL:         fmt.Sprintf("%s/%s%s", s.baseURL, publicID, media.Extension(input.ContentType)),
	}
	s.images[publicID] = img

	return &media.UploadResult{URL: img.URL, PublicID: publicID}, nil
}

// Destroy forgets the image.
func (s *Store) Destroy(_ context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDestroys {
		return fmt.Errorf("memory store: destroy failed")
	}
	if _, ok := s.images[publicID]; !ok {
		return fmt.Errorf("%w: %s", media.ErrNotFound, publicID)
	}
	delete(s.images, publicID)
	return nil
}

// Get returns a stored image.
func (s *Store) Get(publicID string) (*Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[publicID]
	return img, ok
}

// Len returns the number of stored images.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Open returns the bytes of an image for serving in development.
func (s *Store) Open(publicID string) (io.Reader, string, bool) {
	img, ok := s.Get(publicID)
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(img.Data), img.ContentType, true
}
