package miner

import (
	"encoding/hex"
	"strings"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// Predicate tests a candidate address for the vanity condition.
type Predicate func(a address.Address) bool

// LeadingBits matches addresses whose top nbits equal the top nbits of prefix.
func LeadingBits(prefix []byte, nbits int) (Predicate, error) {
	const op = "leadingBits"
	if nbits <= 0 || nbits > 8*address.AddressLength {
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "nbits %d out of range (1..%d)", nbits, 8*address.AddressLength)
	}
	if len(prefix)*8 < nbits {
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "prefix holds %d bits, need %d", len(prefix)*8, nbits)
	}
	full := nbits / 8
	want := append([]byte(nil), prefix[:full]...)
	rem := uint(nbits % 8)
	var mask, last byte
	if rem > 0 {
		mask = byte(0xff << (8 - rem))
		last = prefix[full] & mask
	}
	return func(a address.Address) bool {
		for i, b := range want {
			if a[i] != b {
				return false
			}
		}
		return rem == 0 || a[full]&mask == last
	}, nil
}

// HexPrefix matches addresses whose lowercase hex form starts with prefix,
// e.g. "0x0000" or "1ce". Case is ignored.
func HexPrefix(prefix string) (Predicate, error) {
	const op = "hexPrefix"
	p := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(prefix, "0x"), "0X"))
	if p == "" || len(p) > 2*address.AddressLength {
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "prefix %q must hold 1..%d hex digits", prefix, 2*address.AddressLength)
	}
	padded := p
	if len(padded)%2 == 1 {
		padded += "0"
	}
	raw, err := hex.DecodeString(padded)
	if err != nil {
		return nil, protocol.Wrap(protocol.KindInvalidArgument, op, "prefix is not hex", err)
	}
	return LeadingBits(raw, 4*len(p))
}
