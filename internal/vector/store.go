package vector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by Load when no artifact exists for an identity.
var ErrNotFound = errors.New("embedding artifact not found")

// ArtifactSuffix is appended to a corpus identity to form its artifact file name.
const ArtifactSuffix = "_embeddings.vec"

// Store persists one embedding artifact per corpus identity.
type Store interface {
	Exists(identity string) (bool, error)
	Load(identity string) (*Artifact, error)
	Save(identity string, a *Artifact) error
	Remove(identity string) error
	Path(identity string) string
}

// FileStore keeps artifacts as files in a single directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the artifact path for identity.
func (s *FileStore) Path(identity string) string {
	return filepath.Join(s.dir, identity+ArtifactSuffix)
}

func validIdentity(identity string) error {
	if identity == "" || identity == "." || identity == ".." ||
		strings.ContainsAny(identity, `/\`) || strings.ContainsRune(identity, 0) {
		return fmt.Errorf("invalid corpus identity %q", identity)
	}
	return nil
}

// Exists reports whether an artifact file is present for identity.
func (s *FileStore) Exists(identity string) (bool, error) {
	if err := validIdentity(identity); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(identity))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Load reads and validates the artifact for identity.
func (s *FileStore) Load(identity string) (*Artifact, error) {
	if err := validIdentity(identity); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(identity))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", identity, err)
	}
	a, err := DecodeArtifact(b)
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", identity, err)
	}
	return a, nil
}

// Save writes the artifact atomically: a temp file in the same directory is synced and
// renamed over the destination, so readers see either the old file or the new one.
func (s *FileStore) Save(identity string, a *Artifact) error {
	if err := validIdentity(identity); err != nil {
		return err
	}
	b, err := a.Encode()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, identity+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(b); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(identity)); err != nil {
		_ = os.Remove(tmpName)
		committed = true
		return fmt.Errorf("commit artifact: %w", err)
	}
	committed = true
	return nil
}

// Remove deletes the artifact for identity. Removing a missing artifact is not an error.
func (s *FileStore) Remove(identity string) error {
	if err := validIdentity(identity); err != nil {
		return err
	}
	if err := os.Remove(s.Path(identity)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove artifact %s: %w", identity, err)
	}
	return nil
}

// Identities lists the identities that have an artifact, sorted.
func (s *FileStore) Identities() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ArtifactSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ArtifactSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}
