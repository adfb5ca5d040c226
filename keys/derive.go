package keys

import (
	"crypto/ed25519"
	"fmt"

	"github.com/lifehaverdev/credit-vault-sub001/address"
)

// SeedSize is the length of every root and role seed.
const SeedSize = ed25519.SeedSize

const roleDomain = "creditvault-operator-v1"

// DeriveRoleSeed deterministically derives a role seed from a root seed:
//
//	keccak256(root ‖ 0x00 ‖ "creditvault-operator-v1" ‖ 0x00 ‖ "role:" ‖ role)
//
// The same root yields one independent identity per role (marshal,
// governance, deployer, ...).
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	sum := address.Keccak256(rootSeed, []byte{0}, []byte(roleDomain), []byte{0}, []byte("role:"+role))
	out := make([]byte, SeedSize)
	copy(out, sum[:SeedSize])
	return out, nil
}

// AddressOf returns the vault identity of a public key: low160(keccak256(pub)).
func AddressOf(pub []byte) address.Address {
	sum := address.Keccak256(pub)
	return address.BytesToAddress(sum[address.HashLength-address.AddressLength:])
}
