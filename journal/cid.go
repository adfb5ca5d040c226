package journal

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// BlockID returns the CIDv1 (raw codec, keccak-256 multihash) of a journal block.
//
// keccak-256 matches the hash the vault uses for addresses and custody keys,
// so one digest primitive covers the whole protocol.
func BlockID(block []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(block, multihash.KECCAK_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// VerifyBlock checks that block hashes to id.
func VerifyBlock(id cid.Cid, block []byte) error {
	if !id.Defined() {
		return ErrInvalidCID
	}
	got, err := BlockID(block)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrCIDMismatch
	}
	return nil
}
