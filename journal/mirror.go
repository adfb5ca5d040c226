package journal

import (
	"fmt"

	"github.com/ipfs/go-cid"
)

// NamedStore associates a Store with a stable backend name.
type NamedStore struct {
	Name  string
	Store Store
}

// Mirror writes every block to all backends and reads from the first that has it.
//
// Writes require every backend to return the same id as BlockID; otherwise
// ErrCIDMismatch is returned naming the offending backend.
type Mirror struct {
	Backends []NamedStore
}

var _ HeadStore = Mirror{}

func (m Mirror) Put(block []byte) (cid.Cid, error) {
	want, err := BlockID(block)
	if err != nil {
		return cid.Undef, err
	}
	if len(m.Backends) == 0 {
		return cid.Undef, fmt.Errorf("journal: mirror has no backends")
	}
	for _, b := range m.Backends {
		if b.Store == nil {
			return cid.Undef, fmt.Errorf("journal: nil store for backend %q", b.Name)
		}
		got, err := b.Store.Put(block)
		if err != nil {
			return cid.Undef, fmt.Errorf("journal: backend %q: %w", b.Name, err)
		}
		if !got.Equals(want) {
			return cid.Undef, fmt.Errorf("journal: backend %q: %w", b.Name, ErrCIDMismatch)
		}
	}
	return want, nil
}

func (m Mirror) Get(id cid.Cid) ([]byte, error) {
	for _, b := range m.Backends {
		if b.Store == nil {
			continue
		}
		out, err := b.Store.Get(id)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m Mirror) Has(id cid.Cid) bool {
	for _, b := range m.Backends {
		if b.Store != nil && b.Store.Has(id) {
			return true
		}
	}
	return false
}

// SaveHead records the head on every backend that persists heads.
func (m Mirror) SaveHead(name string, id cid.Cid) error {
	for _, b := range m.Backends {
		hs, ok := b.Store.(HeadStore)
		if !ok {
			continue
		}
		if err := hs.SaveHead(name, id); err != nil {
			return fmt.Errorf("journal: backend %q: %w", b.Name, err)
		}
	}
	return nil
}

// LoadHead returns the head from the first backend that has one.
func (m Mirror) LoadHead(name string) (cid.Cid, error) {
	for _, b := range m.Backends {
		hs, ok := b.Store.(HeadStore)
		if !ok {
			continue
		}
		id, err := hs.LoadHead(name)
		if err == nil {
			return id, nil
		}
		if !IsNotFound(err) {
			return cid.Undef, err
		}
	}
	return cid.Undef, ErrNotFound
}
