package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileSource replays a fixed set of still images in a loop.
type FileSource struct {
	mu     sync.Mutex
	paths  []string
	next   int
	closed bool
}

// NewFileSource matches pattern with filepath.Glob. At least one file must match.
func NewFileSource(pattern string) (*FileSource, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("camera files %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("camera files %q: no match", pattern)
	}
	sort.Strings(paths)
	return &FileSource{paths: paths}, nil
}

func (s *FileSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrNoFrame
	}
	path := s.paths[s.next]
	s.next = (s.next + 1) % len(s.paths)
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrNoFrame, path, err)
	}
	return img, nil
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
