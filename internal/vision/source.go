package vision

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
)

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// DirectorySource replays the JPEG and PNG files of a directory in name
// order. With Loop set it starts over instead of reporting io.EOF.
type DirectorySource struct {
	mu     sync.Mutex
	files  []string
	next   int
	loop   bool
	closed bool
}

// NewDirectorySource lists dir and returns a source over its frames
func NewDirectorySource(dir string, loop bool) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("frame directory %s holds no images", dir)
	}
	return &DirectorySource{files: files, loop: loop}, nil
}

// Read decodes the next frame. A file that cannot be read or decoded is a
// transient error; the source moves past it.
func (s *DirectorySource) Read() (image.Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, io.EOF
	}
	if s.next >= len(s.files) {
		if !s.loop {
			s.mu.Unlock()
			return nil, io.EOF
		}
		s.next = 0
	}
	path := s.files[s.next]
	s.next++
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrTransientIO, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrTransientIO, filepath.Base(path), err)
	}
	return img, nil
}

// Close stops the source
func (s *DirectorySource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Len returns the number of frames in one pass
func (s *DirectorySource) Len() int {
	return len(s.files)
}

// DirectorySourceFactory opens a DirectorySource per camera. Relative
// camera sources are resolved against Root.
type DirectorySourceFactory struct {
	Root string
	Loop bool
}

// Open implements camera.SourceFactory
func (f DirectorySourceFactory) Open(ctx context.Context, cfg camera.Config) (camera.CaptureSource, error) {
	dir := cfg.Source
	if !filepath.IsAbs(dir) && f.Root != "" {
		dir = filepath.Join(f.Root, dir)
	}
	return NewDirectorySource(dir, f.Loop)
}
