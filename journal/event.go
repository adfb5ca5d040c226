package journal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lifehaverdev/credit-vault-sub001/address"
)

// Event kinds emitted by the vault.
const (
	KindMarshalSet    = "MarshalSet"
	KindFreezeSet     = "FreezeSet"
	KindFundChartered = "FundChartered"
	KindUpgraded      = "Upgraded"
	KindContributed   = "Contributed"
	KindCommitted     = "Committed"
	KindRemitted      = "Remitted"
	KindRescinded     = "Rescinded"
)

// Event is one auditable state change.
//
// Seq and Prev are assigned by the Journal; emitters set Kind, Emitter and Attrs.
// Events carry no wall-clock time so the chain is a pure function of the
// operations applied.
type Event struct {
	Seq     uint64            `json:"seq"`
	Prev    string            `json:"prev,omitempty"`
	Kind    string            `json:"kind"`
	Emitter address.Address   `json:"emitter"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Emitter receives events. Emit never fails from the caller's point of view;
// persistence failures surface through the implementation (see Journal.Err).
type Emitter interface {
	Emit(ev Event)
}

type discard struct{}

func (discard) Emit(Event) {}

// Discard drops every event.
var Discard Emitter = discard{}

// Collector keeps events in memory, in emission order.
type Collector struct {
	Events []Event
}

func (c *Collector) Emit(ev Event) { c.Events = append(c.Events, ev) }

// Kinds returns the kinds of the collected events, in order.
func (c *Collector) Kinds() []string {
	out := make([]string, len(c.Events))
	for i, ev := range c.Events {
		out[i] = ev.Kind
	}
	return out
}

// Encode returns the canonical block bytes for ev.
//
// Struct fields encode in declaration order and encoding/json sorts map keys,
// so equal events always produce equal bytes.
func Encode(ev Event) ([]byte, error) {
	if ev.Kind == "" {
		return nil, fmt.Errorf("journal: event kind is required")
	}
	return json.Marshal(ev)
}

// Decode parses block bytes and rejects any non-canonical encoding.
func Decode(block []byte) (Event, error) {
	var ev Event
	dec := json.NewDecoder(bytes.NewReader(block))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return Event{}, fmt.Errorf("journal: decode event: %w", err)
	}
	canon, err := Encode(ev)
	if err != nil {
		return Event{}, err
	}
	if !bytes.Equal(canon, block) {
		return Event{}, fmt.Errorf("journal: non-canonical event encoding at seq %d", ev.Seq)
	}
	return ev, nil
}
