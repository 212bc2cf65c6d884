//go:build !rp2040

package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"actorcode-go/services/storage"
)

// Watch re-applies settings files edited on disk behind the firmware's back. Changes are
// applied with save=false since the file already holds them. The store must be backed by
// the host filesystem.
func (s *ConfigService) Watch(ctx context.Context) error {
	dir := filepath.Join(s.store.Root(), filepath.FromSlash(storage.ActorSettingsDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "new watcher")
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}
	for _, a := range s.reg.Actors() {
		if c, ok := a.(Configurable); ok {
			s.remember(c.ConfigPath())
		}
	}
	s.log.Debugf("watching %s", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.reload(storage.ActorPath(filepath.Base(ev.Name)))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warnf("watcher: %v", err)
		}
	}
}

// reload applies the file at p to the actor that owns it, if any.
func (s *ConfigService) reload(p string) {
	for _, a := range s.reg.Actors() {
		c, ok := a.(Configurable)
		if !ok || c.ConfigPath() != p {
			continue
		}
		data, err := s.store.ReadFile(p)
		if err != nil {
			s.log.Warnf("reload %s: %v", p, err)
			return
		}
		if data == "" {
			// Truncated mid-write; the next event carries the content.
			return
		}
		if s.known(p, data) {
			return
		}
		name := c.Description().Name
		if err := s.Apply(name, data, false); err != nil {
			s.log.Warnf("reload %s: %v", p, err)
			return
		}
		s.log.Infof("reloaded %s from %s", name, p)
		return
	}
}
