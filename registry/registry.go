package registry

import (
	"sort"
	"strconv"
	"sync"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// Governor supplies the current governance identity. Selection of that
// identity (e.g. by holding a governance token) happens outside the vault.
type Governor interface {
	Governor() address.Address
}

// StaticGovernor is a fixed governance identity.
type StaticGovernor address.Address

func (g StaticGovernor) Governor() address.Address { return address.Address(g) }

// Registry is the authorization table shared by a hub and all of its funds:
// which identities are marshals, and whether marshal operations are frozen.
//
// Only the governance identity may mutate it. Writes are visible to the very
// next read from any fund. Each write emits its event before the lock is
// released, so the journal orders changes the way they were applied.
type Registry struct {
	governor Governor
	emitter  address.Address
	events   journal.Emitter

	mu       sync.RWMutex
	marshals map[address.Address]bool
	frozen   bool
}

// New returns an empty, unfrozen registry. Events are attributed to emitter
// (normally the hub's address); events may be nil.
func New(governor Governor, emitter address.Address, events journal.Emitter) *Registry {
	if events == nil {
		events = journal.Discard
	}
	return &Registry{
		governor: governor,
		emitter:  emitter,
		events:   events,
		marshals: make(map[address.Address]bool),
	}
}

// Governance returns the identity currently allowed to mutate the registry.
func (r *Registry) Governance() address.Address { return r.governor.Governor() }

func (r *Registry) onlyGovernance(op string, caller address.Address) error {
	if gov := r.governor.Governor(); caller != gov {
		return protocol.Errorf(protocol.KindUnauthorized, op, "%s is not governance", caller.Hex())
	}
	return nil
}

// SetMarshal grants or revokes marshal capability for id.
func (r *Registry) SetMarshal(caller, id address.Address, authorized bool) error {
	const op = "setMarshal"
	if err := r.onlyGovernance(op, caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if authorized {
		r.marshals[id] = true
	} else {
		delete(r.marshals, id)
	}
	r.events.Emit(journal.Event{
		Kind:    journal.KindMarshalSet,
		Emitter: r.emitter,
		Attrs: map[string]string{
			"marshal":    id.Hex(),
			"authorized": strconv.FormatBool(authorized),
		},
	})
	return nil
}

// SetFreeze opens or closes the global gate on marshal operations.
func (r *Registry) SetFreeze(caller address.Address, frozen bool) error {
	const op = "setFreeze"
	if err := r.onlyGovernance(op, caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = frozen
	r.events.Emit(journal.Event{
		Kind:    journal.KindFreezeSet,
		Emitter: r.emitter,
		Attrs:   map[string]string{"frozen": strconv.FormatBool(frozen)},
	})
	return nil
}

func (r *Registry) IsAuthorized(id address.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.marshals[id]
}

func (r *Registry) IsFrozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Authorize gates a marshal operation: Frozen when the registry is frozen,
// Unauthorized when caller is not a marshal.
func (r *Registry) Authorize(op string, caller address.Address) error {
	r.mu.RLock()
	frozen, ok := r.frozen, r.marshals[caller]
	r.mu.RUnlock()
	if frozen {
		return protocol.Errorf(protocol.KindFrozen, op, "marshal operations are frozen")
	}
	if !ok {
		return protocol.Errorf(protocol.KindUnauthorized, op, "%s is not a marshal", caller.Hex())
	}
	return nil
}

// Marshals returns the authorized identities, sorted.
func (r *Registry) Marshals() []address.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]address.Address, 0, len(r.marshals))
	for id := range r.marshals {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i][:]) < string(out[j][:]) })
	return out
}
