package sqlitestore

import (
	"fmt"

	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/journal/storeregistry"
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "sqlite",
		Description: "SQLite database file (modernc.org/sqlite, no cgo)",
		Keys:        map[string]string{"path": "database file, or :memory:"},
		Open: func(settings map[string]string) (journal.Store, func() error, error) {
			path := settings["path"]
			if path == "" {
				return nil, nil, fmt.Errorf("sqlitestore: missing setting \"path\"")
			}
			s, err := Open(path)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}
