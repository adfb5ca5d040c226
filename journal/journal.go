package journal

import (
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	"go.uber.org/atomic"
)

// Journal appends events to a Store as a hash chain: every block names its
// predecessor's id in Prev, and Seq increases by one per event starting at 1.
type Journal struct {
	store Store

	mu   sync.Mutex
	head cid.Cid
	seq  uint64

	// onAppend runs under mu after a block is stored.
	onAppend func(id cid.Cid) error

	err *atomic.Error
}

var _ Emitter = (*Journal)(nil)

// New starts an empty journal on store.
func New(store Store) *Journal {
	return &Journal{store: store, head: cid.Undef, err: atomic.NewError(nil)}
}

// Resume continues the chain whose newest block is head.
func Resume(store Store, head cid.Cid) (*Journal, error) {
	b, err := store.Get(head)
	if err != nil {
		return nil, err
	}
	ev, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return &Journal{store: store, head: head, seq: ev.Seq, err: atomic.NewError(nil)}, nil
}

// Append links ev to the current head, stores it and returns its id.
func (j *Journal) Append(ev Event) (cid.Cid, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ev.Seq = j.seq + 1
	ev.Prev = ""
	if j.head.Defined() {
		ev.Prev = j.head.String()
	}
	b, err := Encode(ev)
	if err != nil {
		return cid.Undef, err
	}
	id, err := j.store.Put(b)
	if err != nil {
		return cid.Undef, err
	}
	if j.onAppend != nil {
		if err := j.onAppend(id); err != nil {
			return cid.Undef, err
		}
	}
	j.head = id
	j.seq = ev.Seq
	return id, nil
}

// Emit appends ev. The first persistence failure is kept and reported by Err;
// later events are still attempted.
func (j *Journal) Emit(ev Event) {
	if _, err := j.Append(ev); err != nil {
		j.err.CompareAndSwap(nil, fmt.Errorf("journal: emit %s: %w", ev.Kind, err))
	}
}

// Err returns the first error Emit encountered, if any.
func (j *Journal) Err() error { return j.err.Load() }

// Head returns the id of the newest block, or cid.Undef for an empty journal.
func (j *Journal) Head() cid.Cid {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.head
}

// Len returns the number of events appended so far.
func (j *Journal) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Verify walks the chain ending at head and returns its events oldest first.
//
// It fails with ErrBrokenChain when a Prev link is malformed, sequence numbers
// are not contiguous down to 1, or the first event names a predecessor.
func Verify(store Store, head cid.Cid) ([]Event, error) {
	if !head.Defined() {
		return nil, nil
	}
	var rev []Event
	next := head
	for {
		b, err := store.Get(next)
		if err != nil {
			return nil, fmt.Errorf("journal: load %s: %w", next, err)
		}
		ev, err := Decode(b)
		if err != nil {
			return nil, err
		}
		if len(rev) > 0 && ev.Seq+1 != rev[len(rev)-1].Seq {
			return nil, fmt.Errorf("%w: seq %d follows %d", ErrBrokenChain, rev[len(rev)-1].Seq, ev.Seq)
		}
		rev = append(rev, ev)
		if ev.Prev == "" {
			if ev.Seq != 1 {
				return nil, fmt.Errorf("%w: chain starts at seq %d", ErrBrokenChain, ev.Seq)
			}
			break
		}
		if ev.Seq <= 1 {
			return nil, fmt.Errorf("%w: seq %d names a predecessor", ErrBrokenChain, ev.Seq)
		}
		prev, err := cid.Decode(ev.Prev)
		if err != nil {
			return nil, fmt.Errorf("%w: seq %d: %v", ErrBrokenChain, ev.Seq, err)
		}
		next = prev
	}

	out := make([]Event, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out, nil
}
