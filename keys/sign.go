package keys

import (
	"crypto/ed25519"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"github.com/lifehaverdev/credit-vault-sub001/address"
)

// Signer signs call digests on behalf of one operator identity.
type Signer interface {
	Scheme() string
	PublicKey() []byte
	Address() address.Address
	Sign(digest address.Hash) ([]byte, error)
}

// NewSigner builds a Signer for scheme from a 32-byte seed. Both schemes are
// deterministic in the seed.
func NewSigner(scheme string, seed []byte) (Signer, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	switch scheme {
	case SchemeEd25519, "":
		priv := ed25519.NewKeyFromSeed(seed)
		return ed25519Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
	case SchemeDilithium3:
		// mode3 key generation consumes an arbitrary-length stream, expanded
		// from the seed with SHAKE-256.
		xof := sha3.NewShake256()
		_, _ = xof.Write([]byte(roleDomain + ":dilithium3"))
		_, _ = xof.Write(seed)
		pk, sk, err := mode3.GenerateKey(xof)
		if err != nil {
			return nil, fmt.Errorf("dilithium3 keygen: %w", err)
		}
		return dilithiumSigner{priv: sk, pub: pk.Bytes()}, nil
	default:
		return nil, fmt.Errorf("unsupported signature scheme %q", scheme)
	}
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func (s ed25519Signer) Scheme() string           { return SchemeEd25519 }
func (s ed25519Signer) PublicKey() []byte        { return s.pub }
func (s ed25519Signer) Address() address.Address { return AddressOf(s.pub) }

func (s ed25519Signer) Sign(digest address.Hash) ([]byte, error) {
	return ed25519.Sign(s.priv, digest[:]), nil
}

type dilithiumSigner struct {
	priv *mode3.PrivateKey
	pub  []byte
}

func (s dilithiumSigner) Scheme() string           { return SchemeDilithium3 }
func (s dilithiumSigner) PublicKey() []byte        { return s.pub }
func (s dilithiumSigner) Address() address.Address { return AddressOf(s.pub) }

func (s dilithiumSigner) Sign(digest address.Hash) ([]byte, error) {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest[:], sig)
	return sig, nil
}

// Verify checks sig over digest for the given scheme and public key.
func Verify(scheme string, pub []byte, digest address.Hash, sig []byte) error {
	switch scheme {
	case SchemeEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("invalid ed25519 public key length")
		}
		if len(sig) != ed25519.SignatureSize {
			return fmt.Errorf("invalid ed25519 signature length")
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig) {
			return fmt.Errorf("ed25519 signature does not verify")
		}
	case SchemeDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
		if len(sig) != mode3.SignatureSize {
			return fmt.Errorf("invalid dilithium3 signature length")
		}
		if !mode3.Verify(&pk, digest[:], sig) {
			return fmt.Errorf("dilithium3 signature does not verify")
		}
	default:
		return fmt.Errorf("unsupported signature scheme %q", scheme)
	}
	return nil
}
