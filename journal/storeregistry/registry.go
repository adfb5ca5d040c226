// Package storeregistry opens journal stores by backend name.
//
// Backends are linked at build time: a backend package registers itself in
// init(), and a binary enables it by importing that package (often blank).
package storeregistry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lifehaverdev/credit-vault-sub001/journal"
)

// Backend opens one kind of journal.Store from string settings.
type Backend struct {
	Name        string
	Description string

	// Keys documents accepted settings, key -> help text.
	Keys map[string]string

	// Open constructs the store. It returns an optional close function.
	Open func(settings map[string]string) (journal.Store, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

func init() {
	MustRegister(Backend{
		Name:        "memory",
		Description: "In-process store; contents are lost on exit",
		Open: func(map[string]string) (journal.Store, func() error, error) {
			return journal.NewMemStore(), nil, nil
		},
	})
}

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("storeregistry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("storeregistry: backend %q missing Open", b.Name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("storeregistry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns registered backends sorted by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Open opens the named backend, rejecting settings it does not document.
func Open(name string, settings map[string]string) (journal.Store, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("storeregistry: unknown backend %q", name)
	}
	for k := range settings {
		if _, known := b.Keys[k]; !known {
			return nil, nil, fmt.Errorf("storeregistry: backend %q does not accept setting %q", name, k)
		}
	}
	return b.Open(settings)
}
