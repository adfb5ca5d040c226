package localfs

import (
	"fmt"

	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/journal/storeregistry"
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "localfs",
		Description: "Directory of immutable block files plus head pointers",
		Keys:        map[string]string{"dir": "root directory of the store"},
		Open: func(settings map[string]string) (journal.Store, func() error, error) {
			dir := settings["dir"]
			if dir == "" {
				return nil, nil, fmt.Errorf("localfs: missing setting \"dir\"")
			}
			s, err := New(dir)
			return s, nil, err
		},
	})
}
