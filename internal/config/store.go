package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/akedrou/textdiff"
)

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestUnreadable, err)
	}

	m, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// loadOrNew is Load, except that a missing file is an empty manifest.
func loadOrNew(path string) (*Manifest, error) {
	m, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	return m, err
}

// MergeAndPersist merges l into the manifest at path and writes the whole
// manifest back. A missing manifest is created. The merged manifest is
// returned. Nothing is written if the merged entry would not load again.
func MergeAndPersist(path string, l *Language) (*Manifest, error) {
	m, err := merge(path, l)
	if err != nil {
		return nil, err
	}

	if err := Persist(path, m); err != nil {
		return nil, err
	}

	return m, nil
}

// Preview returns the unified diff MergeAndPersist would apply to the file at
// path, without writing anything. It's empty when nothing would change.
func Preview(path string, l *Language) (string, error) {
	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %w", ErrManifestUnreadable, err)
	}

	m, err := merge(path, l)
	if err != nil {
		return "", err
	}

	updated, err := m.Marshal()
	if err != nil {
		return "", err
	}

	return textdiff.Unified(path, path, string(current), string(updated)), nil
}

// merge loads the manifest at path and folds l into it. The merged entry is
// checked, not l, since a partial l may be completed by the existing entry.
func merge(path string, l *Language) (*Manifest, error) {
	if err := ValidateName(l.Name); err != nil {
		return nil, err
	}

	m, err := loadOrNew(path)
	if err != nil {
		return nil, err
	}

	m.Merge(l)

	if err := m.Languages[l.Name].Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Persist replaces the manifest at path with the serialization of m. The new
// content is written to a temporary file next to path and renamed over it, so
// readers see either the old or the new manifest, never a partial one. Content
// that Parse would reject is not written.
func Persist(path string, m *Manifest) error {
	bs, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrManifestWriteFailed, err)
	}

	if _, err := Parse(bs); err != nil {
		return fmt.Errorf("%w: %w", ErrManifestWriteFailed, err)
	}

	if err := writeFileAtomic(path, bs); err != nil {
		return fmt.Errorf("%w: %w", ErrManifestWriteFailed, err)
	}

	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	mode := fs.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, mode); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
