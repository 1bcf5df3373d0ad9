package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sink receives report attachments produced during a run. The external test
// reporter plugs in here; DirSink is the default standalone implementation.
type Sink interface {
	Attach(name, mimeType string, content []byte) error
}

// DirSink writes attachments as files under a per-run directory.
type DirSink struct {
	Dir string
}

// NewDirSink creates the artifacts directory if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

// Attach writes the content under a filename derived from name and mime type.
func (s *DirSink) Attach(name, mimeType string, content []byte) error {
	ext := ".txt"
	switch mimeType {
	case "text/html":
		ext = ".html"
	case "application/yaml", "text/yaml":
		ext = ".yaml"
	case "image/png":
		ext = ".png"
	}
	if filepath.Ext(name) == "" {
		name += ext
	}
	name = strings.ReplaceAll(name, " ", "_")
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write attachment %s: %w", path, err)
	}
	return nil
}
