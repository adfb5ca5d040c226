package journal

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// Store persists journal blocks keyed by their content identifier.
//
// Contract:
// - Put MUST be idempotent and MUST return BlockID(block).
// - Stored blocks MUST be immutable.
// - Get MUST return ErrNotFound when the id is absent and MUST verify the bytes against id.
type Store interface {
	Put(block []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

var (
	ErrNotFound    = errors.New("journal: block not found")
	ErrInvalidCID  = errors.New("journal: invalid cid")
	ErrCIDMismatch = errors.New("journal: cid mismatch")
	ErrImmutable   = errors.New("journal: immutable block mismatch")
	ErrBrokenChain = errors.New("journal: broken chain")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
