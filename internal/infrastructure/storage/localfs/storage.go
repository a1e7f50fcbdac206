// Package localfs stages uploaded reports as short-lived files on local
// disk for the OCR tools.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Storage struct {
	basePath string
	logger   *slog.Logger
}

// New prepares basePath; an empty path uses a directory under the system
// temp dir.
func New(basePath string, logger *slog.Logger) (*Storage, error) {
	if basePath == "" {
		basePath = filepath.Join(os.TempDir(), "medical-report-uploads")
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{basePath: basePath, logger: logger}, nil
}

// Stage writes body to a uniquely named file that keeps the upload's
// extension. The returned cleanup removes it.
func (s *Storage) Stage(ctx context.Context, filename string, body io.Reader) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	f, err := os.CreateTemp(s.basePath, "upload-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create file: %w", err)
	}
	path := f.Name()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("storage.cleanup_failed", "path", path, "error", err)
			}
		})
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close file: %w", err)
	}
	return path, cleanup, nil
}
