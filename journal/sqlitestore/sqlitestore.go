// Package sqlitestore keeps journal blocks and chain heads in a SQLite database.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	_ "modernc.org/sqlite"

	"github.com/lifehaverdev/credit-vault-sub001/journal"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS blocks (
	cid  TEXT PRIMARY KEY,
	data BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS heads (
	name TEXT PRIMARY KEY,
	cid  TEXT NOT NULL
);
`

// Store is a journal.HeadStore on a single SQLite file.
type Store struct {
	db *sql.DB
}

var _ journal.HeadStore = (*Store)(nil)

// Open opens (creating if needed) the database at path. Use ":memory:" for a
// private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlitestore: database path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Put(block []byte) (cid.Cid, error) {
	id, err := journal.BlockID(block)
	if err != nil {
		return cid.Undef, err
	}
	existing, err := s.get(id)
	switch {
	case err == nil:
		if string(existing) != string(block) {
			return cid.Undef, journal.ErrImmutable
		}
		return id, nil
	case !journal.IsNotFound(err):
		return cid.Undef, err
	}
	if _, err := s.db.Exec(`INSERT INTO blocks (cid, data) VALUES (?, ?)`, id.String(), block); err != nil {
		return cid.Undef, fmt.Errorf("sqlitestore: insert block: %w", err)
	}
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, journal.ErrInvalidCID
	}
	b, err := s.get(id)
	if err != nil {
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
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM blocks WHERE cid = ?`, id.String()).Scan(&n)
	return err == nil && n > 0
}

func (s *Store) SaveHead(name string, id cid.Cid) error {
	if name == "" {
		return errors.New("sqlitestore: head name is required")
	}
	if !id.Defined() {
		return journal.ErrInvalidCID
	}
	_, err := s.db.Exec(`INSERT INTO heads (name, cid) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET cid = excluded.cid`, name, id.String())
	return err
}

func (s *Store) LoadHead(name string) (cid.Cid, error) {
	var raw string
	err := s.db.QueryRow(`SELECT cid FROM heads WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return cid.Undef, journal.ErrNotFound
	}
	if err != nil {
		return cid.Undef, err
	}
	id, err := cid.Decode(raw)
	if err != nil {
		return cid.Undef, journal.ErrInvalidCID
	}
	return id, nil
}

func (s *Store) get(id cid.Cid) ([]byte, error) {
	var b []byte
	err := s.db.QueryRow(`SELECT data FROM blocks WHERE cid = ?`, id.String()).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, journal.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
