package certstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates the shared-directory pair for a name is incomplete
	ErrNotFound = errors.New("certificate not found")

	// ErrStorage indicates a filesystem failure underneath the store
	ErrStorage = errors.New("certificate storage error")
)

// Environment partitions per-environment working directories
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

const (
	keySuffix  = "-key.pem"
	certSuffix = "-cert.pem"
)

// Info describes an on-disk certificate pair
type Info struct {
	Name       string    `json:"name"`
	KeyPath    string    `json:"keyPath"`
	CertPath   string    `json:"certPath"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Store owns the certificate directory tree. Working directories under
// dynamic/ are provisioning scratch space; the shared/ directory holds the
// canonical pair the reverse proxy reads.
type Store struct {
	root string
}

// New creates a store rooted at dir
func New(dir string) *Store {
	return &Store{root: dir}
}

// EnsureLayout creates the directory tree with owner-only permissions.
// Safe to repeat on every start.
func (s *Store) EnsureLayout() error {
	dirs := []string{
		filepath.Join(s.root, "dynamic", string(EnvDevelopment)),
		filepath.Join(s.root, "dynamic", string(EnvProduction)),
		filepath.Join(s.root, "shared"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", ErrStorage, dir, err)
		}
	}
	return nil
}

// WorkDir returns the per-environment scratch directory for a name,
// creating it if needed
func (s *Store) WorkDir(name string, env Environment) (string, error) {
	dir := filepath.Join(s.root, "dynamic", string(env), name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: mkdir %s: %v", ErrStorage, dir, err)
	}
	return dir, nil
}

// KeyPath returns the canonical shared-directory key path for a name
func (s *Store) KeyPath(name string) string {
	return filepath.Join(s.root, "shared", name+keySuffix)
}

// CertPath returns the canonical shared-directory certificate path for a name
func (s *Store) CertPath(name string) string {
	return filepath.Join(s.root, "shared", name+certSuffix)
}

// Publish replaces the shared-directory pair wholesale. The key is written
// owner-read-only, the certificate world-readable. Writes go through a
// temp file and rename so a reader never observes a torn pair member.
func (s *Store) Publish(name string, keyPEM, certPEM []byte) error {
	if _, err := s.Remove(name); err != nil {
		return err
	}
	if err := writeFile(s.KeyPath(name), keyPEM, 0o400); err != nil {
		return err
	}
	if err := writeFile(s.CertPath(name), certPEM, 0o644); err != nil {
		// Do not leave a key without its certificate behind.
		_ = os.Remove(s.KeyPath(name))
		return err
	}
	return nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, path, err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: chmod %s: %v", ErrStorage, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", ErrStorage, path, err)
	}
	return nil
}

// Exists reports whether both shared-directory files are present
func (s *Store) Exists(name string) bool {
	if _, err := os.Stat(s.KeyPath(name)); err != nil {
		return false
	}
	if _, err := os.Stat(s.CertPath(name)); err != nil {
		return false
	}
	return true
}

// Info returns file metadata for the shared-directory pair
func (s *Store) Info(name string) (*Info, error) {
	certStat, err := os.Stat(s.CertPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrStorage, s.CertPath(name), err)
	}
	if _, err := os.Stat(s.KeyPath(name)); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: stat %s: %v", ErrStorage, s.KeyPath(name), err)
	}

	return &Info{
		Name:       name,
		KeyPath:    s.KeyPath(name),
		CertPath:   s.CertPath(name),
		Size:       certStat.Size(),
		ModifiedAt: certStat.ModTime(),
	}, nil
}

// Remove deletes the shared-directory pair and the scratch directories.
// Idempotent: absence counts as success, so the first return is true even
// when there was nothing to delete.
func (s *Store) Remove(name string) (bool, error) {
	for _, path := range []string{s.KeyPath(name), s.CertPath(name)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("%w: remove %s: %v", ErrStorage, path, err)
		}
	}
	for _, env := range []Environment{EnvDevelopment, EnvProduction} {
		dir := filepath.Join(s.root, "dynamic", string(env), name)
		if err := os.RemoveAll(dir); err != nil {
			return false, fmt.Errorf("%w: remove %s: %v", ErrStorage, dir, err)
		}
	}
	return true, nil
}

// List scans the shared directory for certificate pairs. Entries whose
// companion key is missing are skipped rather than failing the listing.
func (s *Store) List() ([]Info, error) {
	shared := filepath.Join(s.root, "shared")
	entries, err := os.ReadDir(shared)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, shared, err)
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), certSuffix) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), certSuffix)
		info, err := s.Info(name)
		if err != nil {
			// Orphaned certificate without its key.
			continue
		}
		infos = append(infos, *info)
	}
	return infos, nil
}
