package hub

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/asset"
	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/ledger"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
	"github.com/lifehaverdev/credit-vault-sub001/registry"
)

// InitializeSignature is the function every chartered fund is initialized with.
const InitializeSignature = "initialize(address,address)"

// Config wires a Hub.
type Config struct {
	// Self is the hub's own address, the deployer in every fund derivation.
	Self address.Address
	// Governance supplies the identity allowed to manage marshals, the freeze
	// flag and upgrades.
	Governance registry.Governor
	Beacon     *Beacon
	// ProxyTemplate is the beacon proxy creation code funds are deployed with.
	ProxyTemplate []byte
	// Registry is created from Governance when nil.
	Registry   *registry.Registry
	Transferer asset.Transferer
	Events     journal.Emitter
	Clock      func() time.Time
}

type charterKey struct {
	owner address.Address
	salt  address.Hash
}

// Hub charters funds at deterministic addresses and owns the registry they share.
type Hub struct {
	cfg Config
	reg *registry.Registry

	// mu also orders upgrades with their events.
	mu      sync.RWMutex
	funds   map[address.Address]*ledger.Fund
	charter map[charterKey]address.Address
}

func New(cfg Config) (*Hub, error) {
	const op = "newHub"
	switch {
	case cfg.Self.IsZero():
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "hub address is required")
	case cfg.Beacon == nil:
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "beacon is required")
	case len(cfg.ProxyTemplate) == 0:
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "proxy template is required")
	case cfg.Transferer == nil:
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "transferer is required")
	case cfg.Registry == nil && cfg.Governance == nil:
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "governance or registry is required")
	}
	if cfg.Events == nil {
		cfg.Events = journal.Discard
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New(cfg.Governance, cfg.Self, cfg.Events)
	}
	return &Hub{
		cfg:     cfg,
		reg:     reg,
		funds:   make(map[address.Address]*ledger.Fund),
		charter: make(map[charterKey]address.Address),
	}, nil
}

func (h *Hub) Address() address.Address     { return h.cfg.Self }
func (h *Hub) Beacon() *Beacon              { return h.cfg.Beacon }
func (h *Hub) Registry() *registry.Registry { return h.reg }
func (h *Hub) Governance() address.Address  { return h.reg.Governance() }

// EffectiveSalt returns salt, or owner left-padded to 32 bytes when salt is zero.
func EffectiveSalt(owner address.Address, salt address.Hash) address.Hash {
	if salt.IsZero() {
		return owner.Word()
	}
	return salt
}

// InitCalldata is the initialize(hub, owner) call a fund proxy is deployed with.
func (h *Hub) InitCalldata(owner address.Address) []byte {
	return InitCalldata(h.cfg.Self, owner)
}

// InitCalldata encodes initialize(self, owner).
func InitCalldata(self, owner address.Address) []byte {
	return address.EncodeCall(InitializeSignature, self.Word(), owner.Word())
}

// PredictFund returns the address CharterFund would assign to (owner, salt).
func (h *Hub) PredictFund(owner address.Address, salt address.Hash) address.Address {
	return FundAddress(h.cfg.Self, h.cfg.Beacon.Address(), h.cfg.ProxyTemplate, owner, salt)
}

// FundAddress is the address a hub at self, proxying through beacon with the
// given template, assigns to (owner, salt). It needs no running hub.
func FundAddress(self, beacon address.Address, template []byte, owner address.Address, salt address.Hash) address.Address {
	return address.BeaconProxyAddress(self, EffectiveSalt(owner, salt), template, beacon, InitCalldata(self, owner))
}

// CharterFund creates owner's fund at its deterministic address. Only a
// marshal may charter, and not while frozen.
func (h *Hub) CharterFund(ctx context.Context, caller, owner address.Address, salt address.Hash) (address.Address, error) {
	const op = "charterFund"
	if err := ctx.Err(); err != nil {
		return address.Zero, err
	}
	if err := h.reg.Authorize(op, caller); err != nil {
		return address.Zero, err
	}
	if owner.IsZero() {
		return address.Zero, protocol.Errorf(protocol.KindInvalidArgument, op, "owner is required")
	}
	salt = EffectiveSalt(owner, salt)
	addr := h.PredictFund(owner, salt)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.funds[addr]; exists {
		return address.Zero, protocol.Errorf(protocol.KindConflict, op, "fund %s already chartered", addr.Hex())
	}
	fund, err := ledger.NewFund(ledger.Config{
		Address:    addr,
		Owner:      owner,
		Hub:        h.cfg.Self,
		Authorizer: h.reg,
		Beacon:     h.cfg.Beacon,
		Transferer: h.cfg.Transferer,
		Events:     h.cfg.Events,
		Clock:      h.cfg.Clock,
	})
	if err != nil {
		return address.Zero, err
	}
	h.funds[addr] = fund
	h.charter[charterKey{owner: owner, salt: salt}] = addr

	impl := h.cfg.Beacon.Implementation()
	h.cfg.Events.Emit(journal.Event{
		Kind:    journal.KindFundChartered,
		Emitter: h.cfg.Self,
		Attrs: map[string]string{
			"fund":           addr.Hex(),
			"owner":          owner.Hex(),
			"salt":           salt.Hex(),
			"marshal":        caller.Hex(),
			"beacon":         h.cfg.Beacon.Address().Hex(),
			"implementation": impl.Name + "@" + impl.Version,
		},
	})
	return addr, nil
}

// Fund returns the fund chartered at addr.
func (h *Hub) Fund(addr address.Address) (*ledger.Fund, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.funds[addr]
	if !ok {
		return nil, protocol.Errorf(protocol.KindNotFound, "fund", "no fund at %s", addr.Hex())
	}
	return f, nil
}

// FundFor returns the fund chartered for (owner, salt), with the same zero
// salt defaulting as CharterFund.
func (h *Hub) FundFor(owner address.Address, salt address.Hash) (*ledger.Fund, error) {
	h.mu.RLock()
	addr, ok := h.charter[charterKey{owner: owner, salt: EffectiveSalt(owner, salt)}]
	h.mu.RUnlock()
	if !ok {
		return nil, protocol.Errorf(protocol.KindNotFound, "fundFor", "no fund for %s", owner.Hex())
	}
	return h.Fund(addr)
}

// Funds lists chartered fund addresses, sorted.
func (h *Hub) Funds() []address.Address {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]address.Address, 0, len(h.funds))
	for a := range h.funds {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i][:]) < string(out[j][:]) })
	return out
}

func (h *Hub) SetMarshal(caller, id address.Address, authorized bool) error {
	return h.reg.SetMarshal(caller, id, authorized)
}

func (h *Hub) SetFreeze(caller address.Address, frozen bool) error {
	return h.reg.SetFreeze(caller, frozen)
}

// MarshalFrozen reports whether marshal operations are currently frozen.
func (h *Hub) MarshalFrozen() bool { return h.reg.IsFrozen() }

// Upgrade points the beacon at impl. Fund addresses and custody state are
// unaffected; every fund resolves the new implementation on its next call.
func (h *Hub) Upgrade(caller address.Address, impl ledger.Implementation) error {
	const op = "upgrade"
	if gov := h.reg.Governance(); caller != gov {
		return protocol.Errorf(protocol.KindUnauthorized, op, "%s is not governance", caller.Hex())
	}
	if impl.Name == "" || impl.Version == "" {
		return protocol.Errorf(protocol.KindInvalidArgument, op, "implementation name and version are required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.cfg.Beacon.set(impl)
	h.cfg.Events.Emit(journal.Event{
		Kind:    journal.KindUpgraded,
		Emitter: h.cfg.Self,
		Attrs: map[string]string{
			"beacon":    h.cfg.Beacon.Address().Hex(),
			"from":      prev.Name + "@" + prev.Version,
			"to":        impl.Name + "@" + impl.Version,
			"code_hash": impl.CodeHash.Hex(),
		},
	})
	return nil
}
