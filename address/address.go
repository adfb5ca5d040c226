package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// AddressLength is the size of an account identifier in bytes.
	AddressLength = 20
	// HashLength is the size of a keccak-256 digest, salt or storage word in bytes.
	HashLength = 32
)

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// Hash is a 32-byte value: a keccak-256 digest, a CREATE2 salt or a custody key.
type Hash [HashLength]byte

// Zero is the zero address. It doubles as the native-asset identifier.
var Zero Address

// Keccak256 returns the legacy (pre-FIPS) keccak-256 digest of the concatenated inputs.
func Keccak256(data ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		_, _ = h.Write(b)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// BytesToAddress returns the low 20 bytes of b (left-padded when shorter).
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// BytesToHash returns the low 32 bytes of b (left-padded when shorter).
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) IsZero() bool { return a == Zero }

// Word returns the address left-padded to a 32-byte word, as ABI encoding lays it out.
func (a Address) Word() Hash {
	var w Hash
	copy(w[HashLength-AddressLength:], a[:])
	return w
}

// Hex returns the EIP-55 mixed-case checksum encoding.
func (a Address) Hex() string {
	lower := hex.EncodeToString(a[:])
	sum := Keccak256([]byte(lower))
	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

func (a Address) String() string { return a.Hex() }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a 0x-prefixed (or bare) 40-digit hex address.
//
// All-lowercase and all-uppercase inputs are accepted as-is. Mixed-case inputs
// must carry a valid EIP-55 checksum.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(raw) != 2*AddressLength {
		return a, fmt.Errorf("address: expected %d hex digits, got %d", 2*AddressLength, len(raw))
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return a, fmt.Errorf("address: %w", err)
	}
	copy(a[:], b)
	if raw != strings.ToLower(raw) && raw != strings.ToUpper(raw) {
		if a.Hex()[2:] != raw {
			return Address{}, errors.New("address: invalid EIP-55 checksum")
		}
	}
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error. Intended for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 0x-prefixed (or bare) hex value of at most 64 digits,
// left-padding shorter inputs to 32 bytes.
func ParseHash(s string) (Hash, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(raw) == 0 || len(raw) > 2*HashLength {
		return Hash{}, fmt.Errorf("hash: expected 1..%d hex digits, got %d", 2*HashLength, len(raw))
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return Hash{}, fmt.Errorf("hash: %w", err)
	}
	return BytesToHash(b), nil
}
