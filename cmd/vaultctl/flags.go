package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/joho/godotenv"

	"github.com/lifehaverdev/credit-vault-sub001/address"
)

// envPrefix names environment overrides: --init-code-hash reads
// CREDITVAULT_INIT_CODE_HASH.
const envPrefix = "CREDITVAULT_"

func envKey(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// applyEnv fills flags the command line left unset, first from the process
// environment and then from the dotenv file at path (when non-empty).
func applyEnv(fs *flag.FlagSet, path string) error {
	var file map[string]string
	if path != "" {
		m, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		file = m
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var firstErr error
	fs.VisitAll(func(f *flag.Flag) {
		if firstErr != nil || set[f.Name] || f.Name == "env" {
			return
		}
		key := envKey(f.Name)
		v, ok := os.LookupEnv(key)
		if !ok {
			v, ok = file[key]
		}
		if !ok || v == "" {
			return
		}
		if err := fs.Set(f.Name, v); err != nil {
			firstErr = fmt.Errorf("%s: %w", key, err)
		}
	})
	return firstErr
}

type addrFlag struct {
	v   address.Address
	set bool
}

func (f *addrFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return f.v.Hex()
}

func (f *addrFlag) Set(s string) error {
	a, err := address.ParseAddress(s)
	if err != nil {
		return err
	}
	f.v, f.set = a, true
	return nil
}

type hashFlag struct {
	v   address.Hash
	set bool
}

func (f *hashFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return f.v.Hex()
}

func (f *hashFlag) Set(s string) error {
	h, err := address.ParseHash(s)
	if err != nil {
		return err
	}
	f.v, f.set = h, true
	return nil
}

type amountFlag struct {
	v *uint256.Int
}

func (f *amountFlag) String() string {
	if f == nil || f.v == nil {
		return ""
	}
	return f.v.Dec()
}

func (f *amountFlag) Set(s string) error {
	v, err := parseAmount(s)
	if err != nil {
		return err
	}
	f.v = v
	return nil
}

// value returns the parsed amount, or zero when unset.
func (f *amountFlag) value() *uint256.Int {
	if f.v == nil {
		return new(uint256.Int)
	}
	return f.v
}

type hexFlag struct {
	v   []byte
	set bool
}

func (f *hexFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return "0x" + hex.EncodeToString(f.v)
}

func (f *hexFlag) Set(s string) error {
	b, err := parseHexBytes(s)
	if err != nil {
		return err
	}
	f.v, f.set = b, true
	return nil
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty amount")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := s[2:]
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		b, err := hex.DecodeString(digits)
		if err != nil {
			return nil, err
		}
		if len(b) > 32 {
			return nil, errors.New("amount exceeds 256 bits")
		}
		return new(uint256.Int).SetBytes(b), nil
	}
	return uint256.FromDecimal(s)
}

func parseHexBytes(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

// settingsFrom parses repeated key=value flags.
func settingsFrom(kvs []string) (map[string]string, error) {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid setting %q (want key=value)", kv)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}
