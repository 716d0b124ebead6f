package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrValidation = errors.New("validation failed")

// Upload size ceilings.
const (
	MaxAvatarBytes = 5 << 20
	MaxImageBytes  = 10 << 20
	MaxVideoBytes  = 50 << 20
)

// Store saves uploaded blobs and hands back a public URL.
type Store interface {
	Save(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, objectPath string) error
}

// DiskStore keeps blobs under a local root directory, served from baseURL
// under /media/.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore constructs a DiskStore rooted at dir.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskStore{root: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save writes the blob and returns its URL.
func (s *DiskStore) Save(_ context.Context, objectPath, _ string, data []byte) (string, error) {
	clean, err := s.cleanPath(objectPath)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/media/" + clean, nil
}

// Remove deletes a stored blob; missing blobs are not an error.
func (s *DiskStore) Remove(_ context.Context, objectPath string) error {
	clean, err := s.cleanPath(objectPath)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *DiskStore) cleanPath(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" || strings.Contains(clean, "..") {
		return "", fmt.Errorf("%w: bad object path %q", ErrValidation, objectPath)
	}
	return strings.TrimPrefix(clean, "/"), nil
}

// ValidateImage checks an image upload before any I/O happens.
func ValidateImage(contentType string, size, limit int64) error {
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("%w: file must be an image", ErrValidation)
	}
	if size > limit {
		return fmt.Errorf("%w: image must be at most %dMB", ErrValidation, limit>>20)
	}
	return nil
}

// ValidateStoryMedia checks a story upload and reports its media kind.
// Images are capped at 10MB, videos at 50MB.
func ValidateStoryMedia(contentType string, size int64) (string, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		if size > MaxImageBytes {
			return "", fmt.Errorf("%w: image must be at most %dMB", ErrValidation, int64(MaxImageBytes)>>20)
		}
		return "image", nil
	case strings.HasPrefix(contentType, "video/"):
		if size > MaxVideoBytes {
			return "", fmt.Errorf("%w: video must be at most %dMB", ErrValidation, int64(MaxVideoBytes)>>20)
		}
		return "video", nil
	default:
		return "", fmt.Errorf("%w: file must be an image or video", ErrValidation)
	}
}
