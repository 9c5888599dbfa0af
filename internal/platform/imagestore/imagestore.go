// Package imagestore keeps patient images outside the database. The store
// hands back an opaque path which is the only thing recorded on the patient
// row.
package imagestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("image not found")
	ErrTooLarge           = errors.New("image exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("image type is not allowed")
	ErrInvalidPath        = errors.New("invalid image path")
	ErrEmpty              = errors.New("image is empty")
)

// MaxImageSize is the largest accepted image (10 MB).
const MaxImageSize = 10 * 1024 * 1024

// AllowedContentTypes maps accepted MIME types to the stored file extension.
var AllowedContentTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// Image describes a stored image.
type Image struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"`
}

// Store is the image collaborator. Paths are relative and opaque to callers.
type Store interface {
	Save(ctx context.Context, patientID int64, r io.Reader) (*Image, error)
	Open(ctx context.Context, path string) (io.ReadCloser, *Image, error)
	Resolve(ctx context.Context, path string) error
	Delete(ctx context.Context, path string) error
}

// readImage reads at most MaxImageSize bytes and sniffs the content type.
func readImage(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmpty
	}
	if len(data) > MaxImageSize {
		return nil, "", ErrTooLarge
	}
	ct := http.DetectContentType(data)
	if _, ok := AllowedContentTypes[ct]; !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidContentType, ct)
	}
	return data, ct, nil
}

// newPath builds "<patientID>/<uuid><ext>".
func newPath(patientID int64, contentType string) string {
	return strconv.FormatInt(patientID, 10) + "/" + uuid.NewString() + AllowedContentTypes[contentType]
}

// cleanPath rejects absolute paths and anything escaping the store root.
func cleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", ErrInvalidPath
	}
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrInvalidPath
	}
	return c, nil
}

func contentTypeFor(p string) string {
	ext := path.Ext(p)
	for ct, e := range AllowedContentTypes {
		if e == ext {
			return ct
		}
	}
	return "application/octet-stream"
}

func hashOf(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

// MemoryStore is a thread-safe Store for tests and development.
type MemoryStore struct {
	mu     sync.RWMutex
	images map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{images: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, patientID int64, r io.Reader) (*Image, error) {
	data, ct, err := readImage(r)
	if err != nil {
		return nil, err
	}
	p := newPath(patientID, ct)

	s.mu.Lock()
	s.images[p] = data
	s.mu.Unlock()

	return &Image{Path: p, ContentType: ct, Size: int64(len(data)), Hash: hashOf(data)}, nil
}

func (s *MemoryStore) Open(_ context.Context, p string) (io.ReadCloser, *Image, error) {
	p, err := cleanPath(p)
	if err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	data, ok := s.images[p]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	img := &Image{Path: p, ContentType: contentTypeFor(p), Size: int64(len(data)), Hash: hashOf(data)}
	return io.NopCloser(bytes.NewReader(data)), img, nil
}

func (s *MemoryStore) Resolve(_ context.Context, p string) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.images[p]; !ok {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, p string) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[p]; !ok {
		return ErrNotFound
	}
	delete(s.images, p)
	return nil
}

// Len returns the number of stored images.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
