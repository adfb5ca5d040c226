package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Supported signature schemes.
const (
	SchemeEd25519    = "ed25519"
	SchemeDilithium3 = "dilithium3"
)

// FormatPublicKey encodes a public key as "<scheme>:<base64>".
func FormatPublicKey(scheme string, pub []byte) (string, error) {
	if err := checkPublicKey(scheme, pub); err != nil {
		return "", err
	}
	return scheme + ":" + base64.StdEncoding.EncodeToString(pub), nil
}

// ParsePublicKey decodes the "<scheme>:<base64>" form.
func ParsePublicKey(s string) (scheme string, pub []byte, err error) {
	scheme, enc, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return "", nil, fmt.Errorf("public key %q: missing scheme prefix", s)
	}
	pub, err = base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", nil, fmt.Errorf("public key %q: %w", s, err)
	}
	if err := checkPublicKey(scheme, pub); err != nil {
		return "", nil, err
	}
	return scheme, pub, nil
}

func checkPublicKey(scheme string, pub []byte) error {
	switch scheme {
	case SchemeEd25519:
		if l := len(pub); l != ed25519.PublicKeySize {
			return fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
		}
	case SchemeDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
	default:
		return fmt.Errorf("unsupported signature scheme %q", scheme)
	}
	return nil
}
