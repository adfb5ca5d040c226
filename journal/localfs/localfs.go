package localfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/lifehaverdev/credit-vault-sub001/journal"
)

// Store is a directory-backed journal.HeadStore.
//
// Layout:
//
//	<root>/blocks/<cid[:2]>/<cid>   immutable block bytes (0444)
//	<root>/heads/<name>             current head id of a named chain
//
// Blocks and heads are written to a temporary file and renamed into place, so
// a crash never leaves a partially written block under its final name.
type Store struct {
	root string
}

var _ journal.HeadStore = (*Store)(nil)

// New opens (creating if needed) a store rooted at root.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	for _, dir := range []string{"blocks", "heads"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(block []byte) (cid.Cid, error) {
	id, err := journal.BlockID(block)
	if err != nil {
		return cid.Undef, err
	}
	path := s.blockPath(id)
	if existing, err := os.ReadFile(path); err == nil {
		if string(existing) != string(block) {
			return cid.Undef, journal.ErrImmutable
		}
		return id, nil
	} else if !os.IsNotExist(err) {
		return cid.Undef, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}
	if err := writeAtomic(path, block, 0o444); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, journal.ErrInvalidCID
	}
	b, err := os.ReadFile(s.blockPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, journal.ErrNotFound
		}
		return nil, err
	}
	if err := journal.VerifyBlock(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(s.blockPath(id))
	return err == nil
}

func (s *Store) SaveHead(name string, id cid.Cid) error {
	if err := checkHeadName(name); err != nil {
		return err
	}
	if !id.Defined() {
		return journal.ErrInvalidCID
	}
	return writeAtomic(filepath.Join(s.root, "heads", name), []byte(id.String()+"\n"), 0o644)
}

func (s *Store) LoadHead(name string) (cid.Cid, error) {
	if err := checkHeadName(name); err != nil {
		return cid.Undef, err
	}
	b, err := os.ReadFile(filepath.Join(s.root, "heads", name))
	if err != nil {
		if os.IsNotExist(err) {
			return cid.Undef, journal.ErrNotFound
		}
		return cid.Undef, err
	}
	id, err := cid.Decode(strings.TrimSpace(string(b)))
	if err != nil {
		return cid.Undef, journal.ErrInvalidCID
	}
	return id, nil
}

func (s *Store) blockPath(id cid.Cid) string {
	name := id.String()
	return filepath.Join(s.root, "blocks", name[len(name)-2:], name)
}

func checkHeadName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.New("localfs: invalid head name")
	}
	return nil
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
