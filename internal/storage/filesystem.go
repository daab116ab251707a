package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Filesystem stores blobs as files under a single root directory.
type Filesystem struct {
	root string
}

// NewFilesystem creates the root directory if needed and returns the backend.
func NewFilesystem(root string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", root, err)
	}
	return &Filesystem{root: root}, nil
}

// Name returns the backend discriminator.
func (f *Filesystem) Name() string { return "filesystem" }

// Store writes data under a random-prefixed file name. The UUID prefix makes
// repeated stores of the same originalName collision-free, including under
// concurrent uploads.
func (f *Filesystem) Store(ctx context.Context, data []byte, originalName string) (string, error) {
	ref := uuid.NewString() + "_" + sanitizeName(originalName)
	if err := os.WriteFile(filepath.Join(f.root, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("write file %q: %w", ref, err)
	}
	return ref, nil
}

// Retrieve reads the file back, mapping a missing file to ErrNotFound.
func (f *Filesystem) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.root, sanitizeName(ref)))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", ref, err)
	}
	return data, nil
}

// Delete removes the file, mapping a missing file to ErrNotFound.
func (f *Filesystem) Delete(ctx context.Context, ref string) error {
	err := os.Remove(filepath.Join(f.root, sanitizeName(ref)))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove file %q: %w", ref, err)
	}
	return nil
}

// sanitizeName strips any path components so a reference can never escape the
// root directory.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(filepath.Separator), "_")
	if name == "" || name == "." || name == ".." {
		return "unnamed"
	}
	return name
}
