// Package blob checks and removes the voice-note audio that messages point at.
// Uploading is done elsewhere; messages only carry the object name.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store is the voice-note blob store. Remove treats a missing blob as
// success.
type Store interface {
	Exists(ctx context.Context, ref string) (bool, error)
	Remove(ctx context.Context, ref string) error
}

// Local stores blobs as files under Dir. References may be bare names or
// URL paths such as /uploads/voice-1.webm; only the base name is used.
type Local struct {
	Dir string
}

func (l Local) Exists(_ context.Context, ref string) (bool, error) {
	name, err := Name(ref)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(filepath.Join(l.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob %s: %w", name, err)
	}
	return fi.Mode().IsRegular(), nil
}

func (l Local) Remove(_ context.Context, ref string) error {
	name, err := Name(ref)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.Dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob %s: %w", name, err)
	}
	return nil
}

// Name is the object name a reference resolves to: its base name. Two
// references with the same name point at the same blob.
func Name(ref string) (string, error) {
	name := filepath.Base(filepath.FromSlash(strings.TrimSpace(ref)))
	if name == "." || name == string(filepath.Separator) || name == ".." || name == "" {
		return "", fmt.Errorf("invalid blob reference %q", ref)
	}
	return name, nil
}
