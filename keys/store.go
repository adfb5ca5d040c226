package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore keeps operator seeds on the local filesystem:
//
//	<dir>/<name>/root.seed
//	<dir>/<name>/roles/<role>.seed
//
// Seeds are stored hex-encoded with mode 0600.
type KeyStore struct {
	Directory string
}

// Entry lists one root identity and the roles derived from it.
type Entry struct {
	Name  string
	Roles []string
}

// DefaultDirectory is ~/.creditvault/keys.
func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".creditvault", "keys"), nil
}

// OpenKeyStore returns a store rooted at directory, or at DefaultDirectory when empty.
func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		if directory, err = DefaultDirectory(); err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootPath(name string) string {
	return filepath.Join(ks.Directory, name, "root.seed")
}

func (ks *KeyStore) rolePath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".seed")
}

func checkIdent(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", c, kind)
	}
	return nil
}

func CheckName(name string) error { return checkIdent("name", name) }
func CheckRole(role string) error { return checkIdent("role", role) }

// ParseSeedHex decodes a 32-byte seed, with or without a 0x prefix.
func ParseSeedHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(data) != SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", SeedSize, len(data))
	}
	return data, nil
}

func writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return f.Close()
}

func readSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// InitRoot stores seed as name's root seed. An existing seed is kept unless
// overwrite is set.
func (ks *KeyStore) InitRoot(name string, seed []byte, overwrite bool) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	path := ks.rootPath(name)
	return path, writeSeed(path, seed, overwrite)
}

// DeriveRole derives and stores the seed for role under name's root.
func (ks *KeyStore) DeriveRole(name, role string, overwrite bool) (seed []byte, path string, err error) {
	if err := CheckName(name); err != nil {
		return nil, "", err
	}
	root, err := readSeed(ks.rootPath(name))
	if err != nil {
		return nil, "", err
	}
	if seed, err = DeriveRoleSeed(root, role); err != nil {
		return nil, "", err
	}
	path = ks.rolePath(name, role)
	if err := writeSeed(path, seed, overwrite); err != nil {
		return nil, "", err
	}
	return seed, path, nil
}

// Seed reads name's root seed, or the seed for role when role is set.
func (ks *KeyStore) Seed(name, role string) ([]byte, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	if role == "" {
		return readSeed(ks.rootPath(name))
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	return readSeed(ks.rolePath(name, role))
}

// LoadSeed resolves a seed from, in order: an explicit hex seed, a seed file,
// or a stored (name, role).
func (ks *KeyStore) LoadSeed(seedHex, name, role, keyFile string) ([]byte, error) {
	switch {
	case seedHex != "":
		return ParseSeedHex(seedHex)
	case keyFile != "":
		return readSeed(keyFile)
	case name != "":
		return ks.Seed(name, role)
	}
	return nil, errors.New("no signer provided")
}

// Signer loads a seed like LoadSeed and builds a Signer for scheme.
func (ks *KeyStore) Signer(scheme, seedHex, name, role, keyFile string) (Signer, error) {
	seed, err := ks.LoadSeed(seedHex, name, role, keyFile)
	if err != nil {
		return nil, err
	}
	return NewSigner(scheme, seed)
}

// List returns stored identities and their roles, sorted.
func (ks *KeyStore) List() ([]Entry, error) {
	dirs, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, d := range dirs {
		if d.IsDir() {
			names = append(names, d.Name())
		}
	}
	sort.Strings(names)

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		var roles []string
		files, rerr := os.ReadDir(filepath.Join(ks.Directory, name, "roles"))
		if rerr == nil {
			for _, f := range files {
				if !f.IsDir() && strings.HasSuffix(f.Name(), ".seed") {
					roles = append(roles, strings.TrimSuffix(f.Name(), ".seed"))
				}
			}
			sort.Strings(roles)
		}
		out = append(out, Entry{Name: name, Roles: roles})
	}
	return out, nil
}
