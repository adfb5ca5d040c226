package hub

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/holiman/uint256"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/asset"
	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/ledger"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
	"github.com/lifehaverdev/credit-vault-sub001/registry"
)

var (
	gov        = address.MustParseAddress("0x00000000000000000000000000000000000000a0")
	self       = address.MustParseAddress("0x00000000000000000000000000000000000000c0")
	beaconAddr = address.MustParseAddress("0x00000000000000000000000000000000000000b0")
	marshal    = address.MustParseAddress("0x00000000000000000000000000000000000000d0")
	owner      = address.MustParseAddress("0x0000000000000000000000000000000000000001")
	stranger   = address.MustParseAddress("0x00000000000000000000000000000000000000e0")
	token      = address.MustParseAddress("0x0000000000000000000000000000000000001111")
	template   = []byte{0x60, 0x80, 0x60, 0x40, 0x52}
)

func newHub(t *testing.T) (*Hub, *asset.Bank, *journal.Collector) {
	t.Helper()
	bank := asset.NewBank()
	events := &journal.Collector{}
	h, err := New(Config{
		Self:          self,
		Governance:    registry.StaticGovernor(gov),
		Beacon:        NewBeacon(beaconAddr, ledger.Implementation{Name: "CreditVault", Version: "1"}),
		ProxyTemplate: template,
		Transferer:    bank,
		Events:        events,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.SetMarshal(gov, marshal, true); err != nil {
		t.Fatalf("SetMarshal: %v", err)
	}
	events.Events = nil
	return h, bank, events
}

func TestCharterFund_DeterministicAddress(t *testing.T) {
	h, _, events := newHub(t)
	salt := address.Keccak256([]byte("vanity"))

	predicted := h.PredictFund(owner, salt)
	addr, err := h.CharterFund(context.Background(), marshal, owner, salt)
	if err != nil {
		t.Fatalf("CharterFund: %v", err)
	}
	if addr != predicted {
		t.Fatalf("chartered %s, predicted %s", addr.Hex(), predicted.Hex())
	}

	initCode := append(append([]byte(nil), template...), address.EncodeAddressBytes(beaconAddr, h.InitCalldata(owner))...)
	if want := address.Create2(self, salt, address.InitCodeHash(initCode)); addr != want {
		t.Fatalf("address %s does not match CREATE2 over full init code %s", addr.Hex(), want.Hex())
	}

	fund, err := h.Fund(addr)
	if err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if fund.Owner() != owner || fund.Hub() != self || fund.Address() != addr {
		t.Fatalf("fund wired incorrectly")
	}
	if got := events.Kinds(); len(got) != 1 || got[0] != journal.KindFundChartered {
		t.Fatalf("unexpected events %v", got)
	}
	if events.Events[0].Attrs["salt"] != salt.Hex() {
		t.Fatalf("event salt %q", events.Events[0].Attrs["salt"])
	}
}

func TestCharterFund_ZeroSaltUsesOwner(t *testing.T) {
	h, _, _ := newHub(t)
	addr, err := h.CharterFund(context.Background(), marshal, owner, address.Hash{})
	if err != nil {
		t.Fatalf("CharterFund: %v", err)
	}
	if want := h.PredictFund(owner, owner.Word()); addr != want {
		t.Fatalf("zero salt should derive with owner word: %s vs %s", addr.Hex(), want.Hex())
	}
	if f, err := h.FundFor(owner, address.Hash{}); err != nil || f.Address() != addr {
		t.Fatalf("FundFor: %v", err)
	}
	if f, err := h.FundFor(owner, owner.Word()); err != nil || f.Address() != addr {
		t.Fatalf("FundFor explicit salt: %v", err)
	}
}

func TestCharterFund_Rejections(t *testing.T) {
	h, _, events := newHub(t)
	ctx := context.Background()

	if _, err := h.CharterFund(ctx, stranger, owner, address.Hash{}); !errors.Is(err, protocol.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if _, err := h.CharterFund(ctx, marshal, address.Zero, address.Hash{}); !errors.Is(err, protocol.ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if _, err := h.CharterFund(ctx, marshal, owner, address.Hash{}); err != nil {
		t.Fatalf("CharterFund: %v", err)
	}
	if _, err := h.CharterFund(ctx, marshal, owner, address.Hash{}); !errors.Is(err, protocol.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}

	_ = h.SetFreeze(gov, true)
	if _, err := h.CharterFund(ctx, marshal, stranger, address.Hash{}); !errors.Is(err, protocol.ErrFrozen) {
		t.Fatalf("expected Frozen, got %v", err)
	}
	if len(h.Funds()) != 1 {
		t.Fatalf("rejected charters created funds: %v", h.Funds())
	}
	if got := events.Kinds(); len(got) != 2 || got[1] != journal.KindFreezeSet {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestFreezeHaltsEveryFund(t *testing.T) {
	h, bank, _ := newHub(t)
	ctx := context.Background()
	var funds []*ledger.Fund
	for _, o := range []address.Address{owner, stranger} {
		addr, err := h.CharterFund(ctx, marshal, o, address.Hash{})
		if err != nil {
			t.Fatalf("CharterFund: %v", err)
		}
		f, _ := h.Fund(addr)
		funds = append(funds, f)
	}
	if err := bank.Mint(token, marshal, uint256.NewInt(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if err := h.SetFreeze(gov, true); err != nil {
		t.Fatalf("SetFreeze: %v", err)
	}
	if !h.MarshalFrozen() {
		t.Fatalf("expected MarshalFrozen")
	}
	for _, f := range funds {
		if err := f.ContributeFor(ctx, marshal, owner, token, uint256.NewInt(1)); !errors.Is(err, protocol.ErrFrozen) {
			t.Fatalf("fund %s: expected Frozen, got %v", f.Address().Hex(), err)
		}
	}

	_ = h.SetFreeze(gov, false)
	for _, f := range funds {
		if err := f.ContributeFor(ctx, marshal, owner, token, uint256.NewInt(1)); err != nil {
			t.Fatalf("fund %s after unfreeze: %v", f.Address().Hex(), err)
		}
	}
}

func TestSetMarshal_Delegates(t *testing.T) {
	h, _, _ := newHub(t)
	if err := h.SetMarshal(marshal, stranger, true); !errors.Is(err, protocol.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if err := h.SetMarshal(gov, stranger, true); err != nil {
		t.Fatalf("SetMarshal: %v", err)
	}
	if !h.Registry().IsAuthorized(stranger) {
		t.Fatalf("registry not updated")
	}
	if h.Governance() != gov {
		t.Fatalf("unexpected governance %s", h.Governance().Hex())
	}
}

func TestUpgrade_KeepsAddressesAndState(t *testing.T) {
	h, bank, events := newHub(t)
	ctx := context.Background()
	addr, err := h.CharterFund(ctx, marshal, owner, address.Hash{})
	if err != nil {
		t.Fatalf("CharterFund: %v", err)
	}
	fund, _ := h.Fund(addr)
	_ = bank.Mint(token, owner, uint256.NewInt(9))
	if err := fund.Contribute(ctx, owner, token, uint256.NewInt(9)); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	v2 := ledger.Implementation{Name: "CreditVault", Version: "2", CodeHash: address.Keccak256([]byte("v2"))}
	if err := h.Upgrade(marshal, v2); !errors.Is(err, protocol.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if err := h.Upgrade(gov, ledger.Implementation{}); !errors.Is(err, protocol.ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if err := h.Upgrade(gov, v2); err != nil {
		t.Fatalf("Upgrade: %v", err)
	}

	if fund.Implementation() != v2 {
		t.Fatalf("fund still resolves %+v", fund.Implementation())
	}
	if h.PredictFund(owner, address.Hash{}) != addr {
		t.Fatalf("upgrade moved the fund address")
	}
	if r := fund.Balance(owner, token); r.Owned.Uint64() != 9 {
		t.Fatalf("upgrade lost custody state: %+v", r)
	}
	last := events.Events[len(events.Events)-1]
	if last.Kind != journal.KindUpgraded || last.Attrs["from"] != "CreditVault@1" || last.Attrs["to"] != "CreditVault@2" {
		t.Fatalf("unexpected upgrade event %+v", last)
	}
}

func TestFundLookups_NotFound(t *testing.T) {
	h, _, _ := newHub(t)
	if _, err := h.Fund(stranger); !errors.Is(err, protocol.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := h.FundFor(owner, address.Hash{}); !errors.Is(err, protocol.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestInitCalldata_Layout(t *testing.T) {
	h, _, _ := newHub(t)
	data := h.InitCalldata(owner)
	sel := address.Selector(InitializeSignature)
	if len(data) != 4+64 || string(data[:4]) != string(sel[:]) {
		t.Fatalf("unexpected calldata %x", data)
	}
	if address.BytesToAddress(data[4:36]) != self || address.BytesToAddress(data[36:68]) != owner {
		t.Fatalf("arguments out of order: %x", data)
	}
}

func TestFundAddress_MatchesPredictFund(t *testing.T) {
	h, _, _ := newHub(t)
	for _, salt := range []address.Hash{{}, address.Keccak256([]byte("a"))} {
		if got, want := FundAddress(self, beaconAddr, template, owner, salt), h.PredictFund(owner, salt); got != want {
			t.Fatalf("salt %s: FundAddress %s, PredictFund %s", salt.Hex(), got.Hex(), want.Hex())
		}
	}
}

func TestUpgrade_ConcurrentEventsFollowBeacon(t *testing.T) {
	h, _, events := newHub(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if err := h.Upgrade(gov, ledger.Implementation{Name: "CreditVault", Version: strconv.Itoa(v)}); err != nil {
				t.Errorf("Upgrade: %v", err)
			}
		}(i + 2)
	}
	wg.Wait()

	if len(events.Events) != 16 {
		t.Fatalf("expected 16 upgrade events, got %d", len(events.Events))
	}
	for i := 1; i < len(events.Events); i++ {
		if events.Events[i].Attrs["from"] != events.Events[i-1].Attrs["to"] {
			t.Fatalf("event %d upgrades from %s but previous went to %s", i, events.Events[i].Attrs["from"], events.Events[i-1].Attrs["to"])
		}
	}
	impl := h.Beacon().Implementation()
	if last := events.Events[len(events.Events)-1]; last.Attrs["to"] != impl.Name+"@"+impl.Version {
		t.Fatalf("last event went to %s, beacon holds %s@%s", last.Attrs["to"], impl.Name, impl.Version)
	}
}
