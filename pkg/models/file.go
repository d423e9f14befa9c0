package models

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// File references an external file asset (for example a serialized model)
// usable inside pipeline functions. The file's bytes are captured when the
// graph that references it is sealed, not at run time.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path" validate:"required"`

	// Bytes holds the captured contents after the owning graph is sealed.
	Bytes []byte `json:"-"`
}

// FileOption configures a File at construction.
type FileOption func(*File)

// WithFileName overrides the logical name derived from the path.
func WithFileName(name string) FileOption {
	return func(f *File) { f.Name = name }
}

// NewFile creates a file reference for a local path. The path is not read
// until the owning graph is sealed.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{
		ID:   uuid.New().String(),
		Name: filepath.Base(path),
		Path: path,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// ItemID implements GraphItem.
func (f *File) ItemID() string {
	return f.ID
}

// Capture reads the file contents from disk. The path must exist and be
// readable at seal time.
func (f *File) Capture() error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("failed to capture file %q: %w", f.Path, err)
	}

	f.Bytes = data

	return nil
}

// Captured reports whether the file contents were already read.
func (f *File) Captured() bool {
	return f.Bytes != nil
}
