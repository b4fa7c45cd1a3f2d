// Package assets reads raw byte ranges of media files, either from a local
// directory or from an S3-compatible bucket.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophstream/internal/common"
)

// Source returns up to length bytes of fileName starting at offset. A short
// read at end of file is not an error.
type Source interface {
	ReadAt(ctx context.Context, fileName string, offset, length int64) ([]byte, error)
}

// FileSource serves files from a single directory. Only the base name of
// fileName is used.
type FileSource struct {
	root string
}

func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

func (s *FileSource) ReadAt(ctx context.Context, fileName string, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("%w: negative range", common.ErrBadRequest)
	}

	f, err := os.Open(filepath.Join(s.root, filepath.Base(fileName)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrMediaNotFound, fileName)
		}
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	return buf[:n], nil
}
