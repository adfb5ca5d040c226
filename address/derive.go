package address

import (
	"encoding/binary"

	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// create2Prefix is the domain byte EIP-1014 prepends to the CREATE2 preimage.
const create2Prefix = 0xff

// InitCodeHash returns the code fingerprint used by Create2.
func InitCodeHash(initCode []byte) Hash {
	return Keccak256(initCode)
}

// Create2 returns low160(keccak256(0xff ‖ deployer ‖ salt ‖ codeFingerprint)).
//
// This is bit-exact with the EVM CREATE2 opcode: salts mined against it are
// submitted for real deployments and must land on the same address.
func Create2(deployer Address, salt Hash, codeFingerprint Hash) Address {
	var buf [1 + AddressLength + 2*HashLength]byte
	buf[0] = create2Prefix
	copy(buf[1:], deployer[:])
	copy(buf[1+AddressLength:], salt[:])
	copy(buf[1+AddressLength+HashLength:], codeFingerprint[:])
	sum := Keccak256(buf[:])
	return BytesToAddress(sum[HashLength-AddressLength:])
}

// BeaconProxyFingerprint returns the init-code hash of a beacon proxy whose
// creation code is template and whose constructor arguments are (beacon, initCalldata):
//
//	keccak256(template ‖ abi.encode(address beacon, bytes initCalldata))
func BeaconProxyFingerprint(template []byte, beacon Address, initCalldata []byte) Hash {
	return Keccak256(template, EncodeAddressBytes(beacon, initCalldata))
}

// BeaconProxyAddress derives where deployer places a beacon proxy for (beacon, initCalldata) under salt.
func BeaconProxyAddress(deployer Address, salt Hash, template []byte, beacon Address, initCalldata []byte) Address {
	return Create2(deployer, salt, BeaconProxyFingerprint(template, beacon, initCalldata))
}

// CustodyKey identifies one (user, asset) balance record: keccak256(user ‖ asset).
func CustodyKey(user, asset Address) Hash {
	return Keccak256(user[:], asset[:])
}

// Selector returns the 4-byte function selector for a canonical signature such as
// "initialize(address,address)".
func Selector(signature string) [4]byte {
	sum := Keccak256([]byte(signature))
	var sel [4]byte
	copy(sel[:], sum[:4])
	return sel
}

// EncodeCall returns selector ‖ words, the calldata for a function whose
// arguments are all static 32-byte words.
func EncodeCall(signature string, words ...Hash) []byte {
	sel := Selector(signature)
	out := make([]byte, 0, 4+HashLength*len(words))
	out = append(out, sel[:]...)
	for _, w := range words {
		out = append(out, w[:]...)
	}
	return out
}

// EncodeAddressBytes returns abi.encode(address a, bytes data).
func EncodeAddressBytes(a Address, data []byte) []byte {
	padded := (len(data) + HashLength - 1) / HashLength * HashLength
	out := make([]byte, 3*HashLength+padded)
	w := a.Word()
	copy(out[0:], w[:])
	// offset of the dynamic tail: two head words
	binary.BigEndian.PutUint64(out[2*HashLength-8:2*HashLength], 2*HashLength)
	binary.BigEndian.PutUint64(out[3*HashLength-8:3*HashLength], uint64(len(data)))
	copy(out[3*HashLength:], data)
	return out
}

// MustMatch returns an AddressMismatch error when a derived address differs
// from an externally observed deployment. Callers must abort on error.
func MustMatch(computed, observed Address) error {
	if computed != observed {
		return protocol.Errorf(protocol.KindAddressMismatch, "verify", "computed %s, observed %s", computed.Hex(), observed.Hex())
	}
	return nil
}
