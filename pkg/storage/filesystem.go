package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrExtensionNotAllowed is returned for uploads outside the allow-list.
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// LocalStorage persists uploaded artifacts on disk under a base directory.
type LocalStorage struct {
	baseDir     string
	maxBytes    int64
	allowedExts map[string]struct{}
}

// NewLocalStorage ensures the base directory exists and returns a handle. An
// empty allow-list accepts every extension; maxBytes <= 0 disables the limit.
func NewLocalStorage(baseDir string, maxBytes int64, allowedExts []string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./artifacts"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}
	exts := make(map[string]struct{}, len(allowedExts))
	for _, ext := range allowedExts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &LocalStorage{baseDir: baseDir, maxBytes: maxBytes, allowedExts: exts}, nil
}

// SaveUpload copies r into a uniquely named file keeping the original
// extension and returns the stored name.
func (s *LocalStorage) SaveUpload(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(s.allowedExts) > 0 {
		if _, ok := s.allowedExts[ext]; !ok {
			return "", fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext)
		}
	}

	name := uuid.NewString() + ext
	path := s.resolve(name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, err := io.Copy(file, src)
	closeErr := file.Close()
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = ErrFileTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return name, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(name string) (*os.File, error) {
	file, err := os.Open(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(name string) error {
	if err := os.Remove(s.resolve(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// resolve confines names to the base directory.
func (s *LocalStorage) resolve(name string) string {
	return filepath.Join(s.baseDir, filepath.Base(filepath.Clean("/"+name)))
}
