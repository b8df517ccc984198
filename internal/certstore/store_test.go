package certstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout() error = %v", err)
	}
	return s
}

func TestEnsureLayout(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout() error = %v", err)
	}
	// Repeating is safe.
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("second EnsureLayout() error = %v", err)
	}

	for _, dir := range []string{
		filepath.Join(root, "dynamic", "development"),
		filepath.Join(root, "dynamic", "production"),
		filepath.Join(root, "shared"),
	} {
		stat, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("missing %s: %v", dir, err)
		}
		if !stat.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
		if perm := stat.Mode().Perm(); perm != 0o700 {
			t.Errorf("%s perm = %o, want 700", dir, perm)
		}
	}
}

func TestPublishAndInfo(t *testing.T) {
	s := newTestStore(t)

	if err := s.Publish("demo1", []byte("KEY"), []byte("CERT")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	keyStat, err := os.Stat(s.KeyPath("demo1"))
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if perm := keyStat.Mode().Perm(); perm != 0o400 {
		t.Errorf("key perm = %o, want 400", perm)
	}

	certStat, err := os.Stat(s.CertPath("demo1"))
	if err != nil {
		t.Fatalf("stat cert: %v", err)
	}
	if perm := certStat.Mode().Perm(); perm != 0o644 {
		t.Errorf("cert perm = %o, want 644", perm)
	}

	if !s.Exists("demo1") {
		t.Error("Exists() = false after publish")
	}

	info, err := s.Info("demo1")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Name != "demo1" || info.Size != int64(len("CERT")) {
		t.Errorf("Info() = %+v", info)
	}
}

func TestPublishReplacesPair(t *testing.T) {
	s := newTestStore(t)

	if err := s.Publish("demo1", []byte("KEY1"), []byte("CERT1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	// The first key is 0400; a replacement must not trip on it.
	if err := s.Publish("demo1", []byte("KEY2"), []byte("CERT2")); err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}

	cert, err := os.ReadFile(s.CertPath("demo1"))
	if err != nil {
		t.Fatalf("read cert: %v", err)
	}
	if string(cert) != "CERT2" {
		t.Errorf("cert = %q, want CERT2", cert)
	}
}

func TestInfoNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Info("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Info() error = %v, want ErrNotFound", err)
	}
	if s.Exists("ghost") {
		t.Error("Exists() = true for absent pair")
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Publish("demo1", []byte("KEY"), []byte("CERT")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := s.WorkDir("demo1", EnvDevelopment); err != nil {
		t.Fatalf("WorkDir() error = %v", err)
	}

	ok, err := s.Remove("demo1")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !ok {
		t.Error("Remove() = false, want true")
	}
	if s.Exists("demo1") {
		t.Error("pair still present after Remove()")
	}
	if _, err := os.Stat(filepath.Join(s.root, "dynamic", "development", "demo1")); !os.IsNotExist(err) {
		t.Error("scratch directory survived Remove()")
	}

	// Absence counts as success.
	ok, err = s.Remove("demo1")
	if err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
	if !ok {
		t.Error("second Remove() = false, want true")
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"alpha", "beta"} {
		if err := s.Publish(name, []byte("KEY"), []byte("CERT")); err != nil {
			t.Fatalf("Publish(%s) error = %v", name, err)
		}
	}
	// An orphaned certificate without its key is skipped, not fatal.
	orphan := filepath.Join(s.root, "shared", "orphan-cert.pem")
	if err := os.WriteFile(orphan, []byte("CERT"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}

	infos, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(infos))
	}
	names := map[string]bool{}
	for _, info := range infos {
		names[info.Name] = true
	}
	if !names["alpha"] || !names["beta"] || names["orphan"] {
		t.Errorf("List() names = %v", names)
	}
}

func TestListEmptyRoot(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nonexistent"))

	infos, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("List() returned %d entries, want 0", len(infos))
	}
}
