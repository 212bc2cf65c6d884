// Package storage persists actor settings files.
package storage

import (
	"io/ioutil"
	"os"
	"path"
	"sync"

	"github.com/pkg/errors"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/osfs"
	"gopkg.in/src-d/go-billy.v4/util"
)

// ActorSettingsDir is where actors keep their JSON settings.
const ActorSettingsDir = "/settings/act"

const filePerm = 0o644

// Storage serialises file access; writes replace the whole file.
type Storage struct {
	mu sync.Mutex
	fs billy.Filesystem
}

// New wraps an existing filesystem.
func New(fs billy.Filesystem) *Storage { return &Storage{fs: fs} }

// NewMemory returns a volatile in-RAM store.
func NewMemory() *Storage { return New(memfs.New()) }

// NewOS returns a store rooted at dir on the host filesystem.
func NewOS(dir string) *Storage { return New(osfs.New(dir)) }

// ActorPath returns the settings path for file under ActorSettingsDir.
func ActorPath(file string) string { return path.Join(ActorSettingsDir, file) }

// Root is the host directory backing the store ("/" for memory stores).
func (s *Storage) Root() string { return s.fs.Root() }

// Exists reports whether p names an existing file.
func (s *Storage) Exists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, err := s.fs.Stat(p)
	return err == nil && !fi.IsDir()
}

// ReadFile returns the full contents of p.
func (s *Storage) ReadFile(p string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(os.ErrNotExist, "read %s", p)
		}
		return "", errors.Wrapf(err, "read %s", p)
	}
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", p)
	}
	return string(b), nil
}

// WriteFile replaces p with data, creating parent directories as needed.
func (s *Storage) WriteFile(p, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", path.Dir(p))
	}
	if err := util.WriteFile(s.fs, p, []byte(data), filePerm); err != nil {
		return errors.Wrapf(err, "write %s", p)
	}
	return nil
}

// Remove deletes p; a missing file is not an error.
func (s *Storage) Remove(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", p)
	}
	return nil
}
