package vaultrpc

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/keys"
)

// Envelope field names.
const (
	fieldArgs      = "args"
	fieldNonce     = "nonce"
	fieldScheme    = "scheme"
	fieldPublicKey = "public_key"
	fieldSignature = "signature"
)

// CallDigest is what a caller signs for one call:
//
//	keccak256(method ‖ 0x00 ‖ deterministic-proto(args) ‖ uint64be(nonce))
func CallDigest(method string, args *structpb.Struct, nonce uint64) (address.Hash, error) {
	if args == nil {
		args = &structpb.Struct{}
	}
	raw, err := proto.MarshalOptions{Deterministic: true}.Marshal(args)
	if err != nil {
		return address.Hash{}, fmt.Errorf("marshal args: %w", err)
	}
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return address.Keccak256([]byte(method), []byte{0}, raw, n[:]), nil
}

// Seal wraps args in a signed envelope for method.
func Seal(method string, args *structpb.Struct, nonce uint64, signer keys.Signer) (*structpb.Struct, error) {
	if args == nil {
		args = &structpb.Struct{}
	}
	digest, err := CallDigest(method, args, nonce)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", method, err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldArgs:      structpb.NewStructValue(args),
		fieldNonce:     structpb.NewStringValue(strconv.FormatUint(nonce, 10)),
		fieldScheme:    structpb.NewStringValue(signer.Scheme()),
		fieldPublicKey: structpb.NewStringValue(base64.StdEncoding.EncodeToString(signer.PublicKey())),
		fieldSignature: structpb.NewStringValue(base64.StdEncoding.EncodeToString(sig)),
	}}, nil
}

// Sealed is a verified envelope.
type Sealed struct {
	Caller address.Address
	Nonce  uint64
	Args   *structpb.Struct
}

// Open verifies env's signature for method and returns the caller identity.
// Nonce freshness is checked separately by a NonceBook.
func Open(method string, env *structpb.Struct) (Sealed, error) {
	f := env.GetFields()
	args := f[fieldArgs].GetStructValue()
	if args == nil {
		args = &structpb.Struct{}
	}
	nonce, err := strconv.ParseUint(f[fieldNonce].GetStringValue(), 10, 64)
	if err != nil {
		return Sealed{}, fmt.Errorf("envelope nonce: %w", err)
	}
	scheme := f[fieldScheme].GetStringValue()
	pub, err := base64.StdEncoding.DecodeString(f[fieldPublicKey].GetStringValue())
	if err != nil {
		return Sealed{}, fmt.Errorf("envelope public key: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(f[fieldSignature].GetStringValue())
	if err != nil {
		return Sealed{}, fmt.Errorf("envelope signature: %w", err)
	}
	digest, err := CallDigest(method, args, nonce)
	if err != nil {
		return Sealed{}, err
	}
	if err := keys.Verify(scheme, pub, digest, sig); err != nil {
		return Sealed{}, err
	}
	return Sealed{Caller: keys.AddressOf(pub), Nonce: nonce, Args: args}, nil
}

// NonceBook enforces strictly increasing nonces per caller.
type NonceBook struct {
	mu   sync.Mutex
	last map[address.Address]uint64
}

func NewNonceBook() *NonceBook {
	return &NonceBook{last: make(map[address.Address]uint64)}
}

// Use consumes nonce for caller. It fails when nonce is not above the last
// nonce accepted from caller.
func (b *NonceBook) Use(caller address.Address, nonce uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if last, seen := b.last[caller]; seen && nonce <= last {
		return fmt.Errorf("nonce %d for %s is not above %d", nonce, caller.Hex(), last)
	}
	b.last[caller] = nonce
	return nil
}
