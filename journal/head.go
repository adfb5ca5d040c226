package journal

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
)

// HeadStore is implemented by stores that can also persist named chain heads,
// letting a journal survive process restarts.
type HeadStore interface {
	Store
	SaveHead(name string, id cid.Cid) error
	// LoadHead returns ErrNotFound when no head was saved under name.
	LoadHead(name string) (cid.Cid, error)
}

// Open returns a journal on store. When store is a HeadStore the chain named
// name is resumed (if present) and every append updates the saved head.
func Open(store Store, name string) (*Journal, error) {
	hs, ok := store.(HeadStore)
	if !ok {
		return New(store), nil
	}
	if name == "" {
		return nil, errors.New("journal: chain name is required")
	}
	head, err := hs.LoadHead(name)
	var j *Journal
	switch {
	case err == nil:
		j, err = Resume(store, head)
		if err != nil {
			return nil, fmt.Errorf("journal: resume %q: %w", name, err)
		}
	case IsNotFound(err):
		j = New(store)
	default:
		return nil, err
	}
	j.onAppend = func(id cid.Cid) error { return hs.SaveHead(name, id) }
	return j, nil
}
