// Package storetest is a conformance suite every journal.Store must pass.
package storetest

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/journal"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) journal.Store

func Run(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte(`{"seq":1,"kind":"FreezeSet"}`)

		id, err := s.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := journal.BlockID(want)
		if err != nil {
			t.Fatalf("BlockID failed: %v", err)
		}
		if !id.Equals(wantID) {
			t.Fatalf("Put id mismatch: got %s want %s", id, wantID)
		}

		got, err := s.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same block")

		id1, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if !id1.Equals(id2) {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		id, err := journal.BlockID(b)
		if err != nil {
			t.Fatalf("BlockID failed: %v", err)
		}
		if s.Has(id) {
			t.Fatalf("Has returned true for missing block")
		}
		if _, err := s.Get(id); !journal.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
		if _, err := s.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !s.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if s.Has(undef) {
			t.Fatalf("Has should be false for undefined id")
		}
		if _, err := s.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined id")
		}
	})

	t.Run("BacksAVerifiableJournal", func(t *testing.T) {
		s := newStore(t)
		j := journal.New(s)
		emitter := address.MustParseAddress("0x00000000000000000000000000000000000000c0")
		for _, kind := range []string{journal.KindMarshalSet, journal.KindFreezeSet, journal.KindFundChartered} {
			if _, err := j.Append(journal.Event{Kind: kind, Emitter: emitter}); err != nil {
				t.Fatalf("Append %s: %v", kind, err)
			}
		}
		events, err := journal.Verify(s, j.Head())
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if len(events) != 3 || events[2].Kind != journal.KindFundChartered {
			t.Fatalf("unexpected events: %+v", events)
		}
	})
}
