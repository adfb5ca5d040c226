package journal

import (
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/lifehaverdev/credit-vault-sub001/address"
)

var hubAddr = address.MustParseAddress("0x00000000000000000000000000000000000000c0")

func appendN(t *testing.T, j *Journal, n int) []cid.Cid {
	t.Helper()
	ids := make([]cid.Cid, 0, n)
	for i := 0; i < n; i++ {
		id, err := j.Append(Event{Kind: KindFreezeSet, Emitter: hubAddr, Attrs: map[string]string{"i": string(rune('a' + i))}})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestJournal_AppendAndVerify(t *testing.T) {
	store := NewMemStore()
	j := New(store)
	ids := appendN(t, j, 4)

	if j.Head() != ids[3] {
		t.Fatalf("head mismatch")
	}
	if j.Len() != 4 {
		t.Fatalf("expected 4 events, got %d", j.Len())
	}

	events, err := Verify(store, j.Head())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d: seq %d", i, ev.Seq)
		}
	}
	if events[0].Prev != "" {
		t.Fatalf("first event must not name a predecessor")
	}
	if events[2].Prev != ids[1].String() {
		t.Fatalf("event 3 must link to event 2")
	}
}

func TestJournal_DeterministicChain(t *testing.T) {
	a := New(NewMemStore())
	b := New(NewMemStore())
	appendN(t, a, 3)
	appendN(t, b, 3)
	if a.Head() != b.Head() {
		t.Fatalf("same events must produce the same head: %s vs %s", a.Head(), b.Head())
	}
}

func TestJournal_Resume(t *testing.T) {
	store := NewMemStore()
	j := New(store)
	appendN(t, j, 2)

	r, err := Resume(store, j.Head())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := r.Append(Event{Kind: KindUpgraded, Emitter: hubAddr}); err != nil {
		t.Fatalf("Append after resume: %v", err)
	}
	events, err := Verify(store, r.Head())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(events) != 3 || events[2].Kind != KindUpgraded {
		t.Fatalf("unexpected chain after resume: %+v", events)
	}
}

func TestVerify_DetectsForgedLink(t *testing.T) {
	store := NewMemStore()
	j := New(store)
	ids := appendN(t, j, 2)

	// A block claiming seq 5 on top of seq 2 breaks contiguity.
	forged, err := Encode(Event{Seq: 5, Prev: ids[1].String(), Kind: KindFreezeSet, Emitter: hubAddr})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	head, err := store.Put(forged)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := Verify(store, head); !errors.Is(err, ErrBrokenChain) {
		t.Fatalf("expected ErrBrokenChain, got %v", err)
	}
}

func TestVerify_MissingBlock(t *testing.T) {
	store := NewMemStore()
	j := New(store)
	appendN(t, j, 2)

	other := NewMemStore()
	if _, err := Verify(other, j.Head()); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecode_RejectsNonCanonical(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":"FreezeSet","seq":1,"emitter":"0x00000000000000000000000000000000000000c0"}`)); err == nil {
		t.Fatalf("expected non-canonical field order to be rejected")
	}
}

type failingStore struct{ Store }

func (failingStore) Put([]byte) (cid.Cid, error) { return cid.Undef, errors.New("disk full") }

func TestJournal_EmitKeepsFirstError(t *testing.T) {
	j := New(failingStore{NewMemStore()})
	j.Emit(Event{Kind: KindFreezeSet, Emitter: hubAddr})
	j.Emit(Event{Kind: KindMarshalSet, Emitter: hubAddr})
	if j.Err() == nil {
		t.Fatalf("expected sticky error")
	}
	if j.Len() != 0 {
		t.Fatalf("failed appends must not advance the chain")
	}
}
