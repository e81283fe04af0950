// Package credential persists the TV pairing key.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFile is the key file name under the user's home directory.
const DefaultFile = ".lgtv_key"

// ErrEmptyKey is returned when saving a blank key.
var ErrEmptyKey = errors.New("credential: empty key")

// File stores the key as the trimmed contents of a single file.
type File struct {
	Path string
}

// DefaultPath returns ~/.lgtv_key.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("credential: home dir: %w", err)
	}
	return filepath.Join(home, DefaultFile), nil
}

// Load returns the stored key. A missing or blank file is ok=false with no error.
func (f *File) Load() (string, bool, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("credential: read %s: %w", f.Path, err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", false, nil
	}
	return key, true, nil
}

// Save replaces the stored key atomically: write a temp file in the same
// directory, then rename over the old one.
func (f *File) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("credential: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(key); err != nil {
		tmp.Close()
		return fmt.Errorf("credential: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("credential: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credential: close: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("credential: replace %s: %w", f.Path, err)
	}
	return nil
}
