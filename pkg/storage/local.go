package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type localStorage struct {
	dir       string
	urlPrefix string
}

// NewLocalStorage writes media under dir and serves it from urlPrefix.
func NewLocalStorage(dir, urlPrefix string) (ImageStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &localStorage{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (s *localStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.Clean("/"+folder))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", folder, err)
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(fileName))
	f, err := os.Create(filepath.Join(target, name))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	rel, err := filepath.Rel(s.dir, f.Name())
	if err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + filepath.ToSlash(rel), nil
}

func (s *localStorage) DeleteImage(ctx context.Context, fileURL string) error {
	rel, ok := strings.CutPrefix(fileURL, s.urlPrefix+"/")
	if !ok {
		return fmt.Errorf("file %s is not stored locally", fileURL)
	}

	err := os.Remove(filepath.Join(s.dir, filepath.Clean("/"+rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
