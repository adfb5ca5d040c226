package hub

import (
	"sync"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/ledger"
)

// Beacon holds the implementation every fund chartered against it runs.
// Its address is part of each fund's derivation and never changes; Upgrade
// only swaps what it points at.
type Beacon struct {
	addr address.Address

	mu   sync.RWMutex
	impl ledger.Implementation
}

var _ ledger.ImplementationSource = (*Beacon)(nil)

func NewBeacon(addr address.Address, impl ledger.Implementation) *Beacon {
	return &Beacon{addr: addr, impl: impl}
}

func (b *Beacon) Address() address.Address { return b.addr }

func (b *Beacon) Implementation() ledger.Implementation {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.impl
}

func (b *Beacon) set(impl ledger.Implementation) ledger.Implementation {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.impl
	b.impl = impl
	return prev
}
