package ledger

import (
	"encoding/hex"

	"github.com/holiman/uint256"

	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// HalfBits is the width of each counter in a packed custody word.
const HalfBits = 128

// Word is a packed custody value, 32 bytes big-endian.
// Bits [0,128) hold the owned amount and bits [128,256) the escrowed amount.
type Word [32]byte

// Record is the unpacked form of a Word.
type Record struct {
	Owned  uint256.Int
	Escrow uint256.Int
}

// Fits reports whether x can be stored in one half of a Word.
func Fits(x *uint256.Int) bool { return x.BitLen() <= HalfBits }

// PackAmount encodes (owned, escrow) into a Word. Either half at or above
// 2^128 is an Overflow.
func PackAmount(owned, escrow *uint256.Int) (Word, error) {
	if !Fits(owned) || !Fits(escrow) {
		return Word{}, protocol.Errorf(protocol.KindOverflow, "packAmount", "owned %s / escrow %s exceeds 128 bits", owned.Dec(), escrow.Dec())
	}
	v := new(uint256.Int).Lsh(escrow, HalfBits)
	v.Or(v, owned)
	return Word(v.Bytes32()), nil
}

// SplitAmount decodes a Word into (owned, escrow).
func SplitAmount(w Word) (owned, escrow *uint256.Int) {
	v := new(uint256.Int).SetBytes32(w[:])
	escrow = new(uint256.Int).Rsh(v, HalfBits)
	owned = new(uint256.Int).Sub(v, new(uint256.Int).Lsh(escrow, HalfBits))
	return owned, escrow
}

// Pack encodes r.
func (r Record) Pack() (Word, error) { return PackAmount(&r.Owned, &r.Escrow) }

// Record decodes w.
func (w Word) Record() Record {
	owned, escrow := SplitAmount(w)
	return Record{Owned: *owned, Escrow: *escrow}
}

// Total returns owned + escrow. It cannot overflow for a decoded Word.
func (r Record) Total() *uint256.Int {
	return new(uint256.Int).Add(&r.Owned, &r.Escrow)
}

func (w Word) IsZero() bool { return w == Word{} }

func (w Word) Hex() string { return "0x" + hex.EncodeToString(w[:]) }

func (w Word) String() string { return w.Hex() }
