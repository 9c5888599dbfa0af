package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/rs/zerolog/log"
)

// FileStore writes images below a root directory. Every access goes through
// an os.Root, so a path can never resolve outside the directory.
type FileStore struct {
	root *os.Root
	dir  string
}

// NewFileStore creates dir when needed and opens it as the store root.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating image dir: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening image dir: %w", err)
	}
	return &FileStore{root: root, dir: dir}, nil
}

// Dir returns the directory the store was opened on.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Close() error { return s.root.Close() }

func (s *FileStore) Save(ctx context.Context, patientID int64, r io.Reader) (*Image, error) {
	data, ct, err := readImage(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := newPath(patientID, ct)
	if err := s.root.Mkdir(path.Dir(p), 0o750); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("creating patient image dir: %w", err)
	}
	f, err := s.root.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("creating image file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.root.Remove(p)
		return nil, fmt.Errorf("writing image file: %w", err)
	}
	if err := f.Close(); err != nil {
		s.root.Remove(p)
		return nil, fmt.Errorf("closing image file: %w", err)
	}

	log.Debug().Int64("patient_id", patientID).Str("path", p).Int("size", len(data)).Msg("image stored")
	return &Image{Path: p, ContentType: ct, Size: int64(len(data)), Hash: hashOf(data)}, nil
}

func (s *FileStore) Open(_ context.Context, p string) (io.ReadCloser, *Image, error) {
	p, err := cleanPath(p)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.root.Open(p)
	if err != nil {
		return nil, nil, mapFSError(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, mapFSError(err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, &Image{Path: p, ContentType: contentTypeFor(p), Size: info.Size()}, nil
}

// Resolve reports whether path names a readable image file.
func (s *FileStore) Resolve(_ context.Context, p string) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}
	info, err := s.root.Stat(p)
	if err != nil {
		return mapFSError(err)
	}
	if !info.Mode().IsRegular() {
		return ErrNotFound
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, p string) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}
	if err := s.root.Remove(p); err != nil {
		return mapFSError(err)
	}
	return nil
}

func mapFSError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
