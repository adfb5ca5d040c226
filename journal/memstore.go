package journal

import (
	"sync"

	"github.com/ipfs/go-cid"
)

// MemStore is an in-process Store. Blocks live as long as the value does.
type MemStore struct {
	mu     sync.RWMutex
	blocks map[string][]byte
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{blocks: make(map[string][]byte)}
}

func (m *MemStore) Put(block []byte) (cid.Cid, error) {
	id, err := BlockID(block)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.blocks[id.KeyString()]; ok {
		if string(existing) != string(block) {
			return cid.Undef, ErrImmutable
		}
		return id, nil
	}
	m.blocks[id.KeyString()] = append([]byte(nil), block...)
	return id, nil
}

func (m *MemStore) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	m.mu.RLock()
	b, ok := m.blocks[id.KeyString()]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if err := VerifyBlock(id, b); err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (m *MemStore) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[id.KeyString()]
	return ok
}

// Len returns the number of stored blocks.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}
