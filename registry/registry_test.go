package registry

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

var (
	gov     = address.MustParseAddress("0x00000000000000000000000000000000000000a0")
	hubAddr = address.MustParseAddress("0x00000000000000000000000000000000000000c0")
	marshal = address.MustParseAddress("0x00000000000000000000000000000000000000d0")
	intrude = address.MustParseAddress("0x00000000000000000000000000000000000000e0")
)

func newRegistry() (*Registry, *journal.Collector) {
	events := &journal.Collector{}
	return New(StaticGovernor(gov), hubAddr, events), events
}

func TestSetMarshal_GovernanceOnly(t *testing.T) {
	r, events := newRegistry()
	err := r.SetMarshal(intrude, intrude, true)
	if !errors.Is(err, protocol.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if r.IsAuthorized(intrude) || len(events.Events) != 0 {
		t.Fatalf("rejected call must not change state or emit")
	}

	if err := r.SetMarshal(gov, marshal, true); err != nil {
		t.Fatalf("SetMarshal: %v", err)
	}
	if !r.IsAuthorized(marshal) {
		t.Fatalf("expected marshal to be authorized")
	}
	if err := r.SetMarshal(gov, marshal, false); err != nil {
		t.Fatalf("SetMarshal revoke: %v", err)
	}
	if r.IsAuthorized(marshal) {
		t.Fatalf("expected marshal to be revoked")
	}
	if len(events.Events) != 2 || events.Events[1].Attrs["authorized"] != "false" {
		t.Fatalf("unexpected events: %+v", events.Events)
	}
}

func TestSetFreeze_GovernanceOnly(t *testing.T) {
	r, events := newRegistry()
	if err := r.SetFreeze(marshal, true); !errors.Is(err, protocol.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if err := r.SetFreeze(gov, true); err != nil {
		t.Fatalf("SetFreeze: %v", err)
	}
	if !r.IsFrozen() {
		t.Fatalf("expected frozen")
	}
	if got := events.Kinds(); len(got) != 1 || got[0] != journal.KindFreezeSet {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestAuthorize_FrozenBeforeUnauthorized(t *testing.T) {
	r, _ := newRegistry()
	_ = r.SetMarshal(gov, marshal, true)

	if err := r.Authorize("commit", marshal); err != nil {
		t.Fatalf("Authorize marshal: %v", err)
	}
	if err := r.Authorize("commit", intrude); !errors.Is(err, protocol.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}

	_ = r.SetFreeze(gov, true)
	for _, who := range []address.Address{marshal, intrude} {
		if err := r.Authorize("commit", who); !errors.Is(err, protocol.ErrFrozen) {
			t.Fatalf("expected Frozen for %s, got %v", who.Hex(), err)
		}
	}

	_ = r.SetFreeze(gov, false)
	if err := r.Authorize("commit", marshal); err != nil {
		t.Fatalf("Authorize after unfreeze: %v", err)
	}
}

type rotatingGovernor struct{ current address.Address }

func (g *rotatingGovernor) Governor() address.Address { return g.current }

func TestGovernor_ResolvedPerCall(t *testing.T) {
	g := &rotatingGovernor{current: gov}
	r := New(g, hubAddr, nil)
	if err := r.SetFreeze(gov, true); err != nil {
		t.Fatalf("SetFreeze: %v", err)
	}
	g.current = marshal
	if err := r.SetFreeze(gov, false); !errors.Is(err, protocol.ErrUnauthorized) {
		t.Fatalf("old governance must lose access, got %v", err)
	}
	if err := r.SetFreeze(marshal, false); err != nil {
		t.Fatalf("new governance: %v", err)
	}
	if r.Governance() != marshal {
		t.Fatalf("Governance did not follow the provider")
	}
}

func TestConcurrentWrites_JournalEndsAtCurrentState(t *testing.T) {
	for round := 0; round < 20; round++ {
		r, events := newRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(2)
			go func(frozen bool) {
				defer wg.Done()
				if err := r.SetFreeze(gov, frozen); err != nil {
					t.Errorf("SetFreeze: %v", err)
				}
			}(i%2 == 0)
			go func(authorized bool) {
				defer wg.Done()
				if err := r.SetMarshal(gov, marshal, authorized); err != nil {
					t.Errorf("SetMarshal: %v", err)
				}
			}(i%2 == 1)
		}
		wg.Wait()

		var lastFrozen, lastAuthorized string
		for _, ev := range events.Events {
			switch ev.Kind {
			case journal.KindFreezeSet:
				lastFrozen = ev.Attrs["frozen"]
			case journal.KindMarshalSet:
				lastAuthorized = ev.Attrs["authorized"]
			}
		}
		if want := strconv.FormatBool(r.IsFrozen()); lastFrozen != want {
			t.Fatalf("round %d: last FreezeSet says %s, registry frozen=%s", round, lastFrozen, want)
		}
		if want := strconv.FormatBool(r.IsAuthorized(marshal)); lastAuthorized != want {
			t.Fatalf("round %d: last MarshalSet says %s, registry authorized=%s", round, lastAuthorized, want)
		}
	}
}
