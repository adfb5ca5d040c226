package storeregistry

import (
	"errors"
	"fmt"

	"github.com/lifehaverdev/credit-vault-sub001/journal"
)

// Config describes the journal's backing stores.
//
// With one backend the store is used directly. With several, writes go to all
// of them and reads fall back in order (journal.Mirror).
type Config struct {
	Backends []BackendConfig `toml:"backends" json:"backends"`
}

type BackendConfig struct {
	// Name is the registered backend to open (e.g. "memory", "localfs", "sqlite").
	Name string `toml:"name" json:"name"`
	// ID is an optional alias used in error messages; Name is used when empty.
	ID       string            `toml:"id" json:"id,omitempty"`
	Settings map[string]string `toml:"settings" json:"settings,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("storeregistry: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("storeregistry: backend name is required")
		}
		if _, dup := seen[b.id()]; dup {
			return fmt.Errorf("storeregistry: duplicate backend id %q", b.id())
		}
		seen[b.id()] = struct{}{}
	}
	return nil
}

// Open opens every configured backend. On error, already-opened backends are closed.
func (c Config) Open() (journal.Store, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	named := make([]journal.NamedStore, 0, len(c.Backends))
	closers := make([]func() error, 0, len(c.Backends))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, b := range c.Backends {
		s, closeFn, err := Open(b.Name, b.Settings)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("storeregistry: open %q: %w", b.id(), err)
		}
		named = append(named, journal.NamedStore{Name: b.id(), Store: s})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].Store, closeAll, nil
	}
	return journal.Mirror{Backends: named}, closeAll, nil
}
