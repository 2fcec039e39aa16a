package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Store resolves manifest paths under the manifests directory and answers
// presence queries. A manifest's presence is the only durability signal the
// pipeline relies on.
type Store struct {
	root string
}

// NewStore builds a store rooted at <root>/manifests.
func NewStore(manifestsDir string) *Store {
	return &Store{root: filepath.Clean(manifestsDir)}
}

// FamilyDir returns manifests/<family>.
func (s *Store) FamilyDir(family string) string {
	return filepath.Join(s.root, family)
}

// Path resolves the on-disk location of a manifest.
func (s *Store) Path(ref ManifestRef) string {
	return filepath.Join(s.root, ref.Family, ref.FileName())
}

// Check inspects the manifest on disk. Empty files and directories are
// reported as invalid so a half-created artifact never counts as done.
func (s *Store) Check(ref ManifestRef) (CheckResult, error) {
	if err := ref.Validate(); err != nil {
		return CheckResult{Ref: ref, State: StateError, Err: err}, err
	}
	path := s.Path(ref)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CheckResult{Ref: ref, Path: path, State: StateMissing}, nil
		}
		return CheckResult{Ref: ref, Path: path, State: StateError, Err: err}, err
	}
	if info.IsDir() {
		return invalidResult(ref, path, fmt.Errorf("artifact: expected manifest file got directory"))
	}
	if info.Size() == 0 {
		return invalidResult(ref, path, fmt.Errorf("artifact: %s is empty", ref.Name()))
	}
	return CheckResult{Ref: ref, Path: path, State: StateReady}, nil
}

// Exists reports whether the manifest is ready.
func (s *Store) Exists(ref ManifestRef) (bool, error) {
	result, err := s.Check(ref)
	if result.State == StateInvalid {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return result.State == StateReady, nil
}

// AllExist reports whether every manifest is ready.
func (s *Store) AllExist(refs ...ManifestRef) (bool, error) {
	for _, ref := range refs {
		ok, err := s.Exists(ref)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Missing returns the subset of refs that are not ready.
func (s *Store) Missing(refs ...ManifestRef) ([]ManifestRef, error) {
	var missing []ManifestRef
	for _, ref := range refs {
		ok, err := s.Exists(ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, ref)
		}
	}
	return missing, nil
}

// Remove deletes a manifest. Removing an absent manifest is not an error.
func (s *Store) Remove(ref ManifestRef) error {
	if err := os.Remove(s.Path(ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("artifact: remove %s: %w", ref, err)
	}
	return nil
}

// DirExists reports whether path is an existing directory. Corpus marker
// directories use this to skip downloads.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// WriteAtomic writes to a temporary sibling and renames it over path, so
// readers only ever observe complete files.
func WriteAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// CopyFile copies src to dst atomically.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return WriteAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func invalidResult(ref ManifestRef, path string, err error) (CheckResult, error) {
	return CheckResult{Ref: ref, Path: path, State: StateInvalid, Err: err}, err
}
