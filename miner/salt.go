package miner

import (
	"encoding/binary"
	"fmt"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// SaltEncoder turns a candidate index into a 32-byte salt.
type SaltEncoder func(i uint64) address.Hash

// MaxPayload is the largest fixed payload PackedSalt accepts; the low eight
// bytes always hold the counter.
const MaxPayload = address.HashLength - 8

// RawSalt encodes i as a big-endian 256-bit integer.
func RawSalt(i uint64) address.Hash {
	var h address.Hash
	binary.BigEndian.PutUint64(h[address.HashLength-8:], i)
	return h
}

// PackedSalt returns an encoder placing payload in the high bytes of the salt
// and the counter, big-endian, in the low eight bytes. A typical payload is an
// embedded 20-byte identity.
func PackedSalt(payload []byte) (SaltEncoder, error) {
	if len(payload) > MaxPayload {
		return nil, protocol.Errorf(protocol.KindInvalidArgument, "packedSalt", "payload is %d bytes, max %d", len(payload), MaxPayload)
	}
	var base address.Hash
	copy(base[:], payload)
	return func(i uint64) address.Hash {
		h := base
		binary.BigEndian.PutUint64(h[address.HashLength-8:], i)
		return h
	}, nil
}

// SaltIndex recovers the counter from a salt built by RawSalt or PackedSalt.
func SaltIndex(salt address.Hash) uint64 {
	return binary.BigEndian.Uint64(salt[address.HashLength-8:])
}

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }
