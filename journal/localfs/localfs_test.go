package localfs

import (
	"errors"
	"os"
	"testing"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/journal/storetest"
)

func TestLocalFS_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) journal.Store {
		t.Helper()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return s
	})
}

func TestLocalFS_DetectsCorruption(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	orig := []byte("original")
	id, err := s.Put(orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored block out-of-band.
	path := s.blockPath(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := s.Get(id); !errors.Is(err, journal.ErrCIDMismatch) {
		t.Fatalf("Get: got %v want %v", err, journal.ErrCIDMismatch)
	}
	if _, err := s.Put(orig); !errors.Is(err, journal.ErrImmutable) {
		t.Fatalf("Put after corruption: got %v want %v", err, journal.ErrImmutable)
	}
}

func TestLocalFS_JournalSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	emitter := address.MustParseAddress("0x00000000000000000000000000000000000000c0")

	s1, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	j1, err := journal.Open(s1, "hub")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := j1.Append(journal.Event{Kind: journal.KindMarshalSet, Emitter: emitter}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	s2, err := New(dir)
	if err != nil {
		t.Fatalf("New (reopen): %v", err)
	}
	j2, err := journal.Open(s2, "hub")
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	if !j2.Head().Equals(j1.Head()) || j2.Len() != 2 {
		t.Fatalf("reopened journal did not resume: head %s len %d", j2.Head(), j2.Len())
	}
	if _, err := j2.Append(journal.Event{Kind: journal.KindFreezeSet, Emitter: emitter}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	events, err := journal.Verify(s2, j2.Head())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
}

func TestLocalFS_RejectsBadHeadName(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.LoadHead("../escape"); err == nil {
		t.Fatalf("expected error for path-like head name")
	}
}
