// Package journal records auditable vault events in a hash-chained,
// content-addressed log.
//
// Each event is encoded canonically, stored as a block keyed by a CIDv1
// (raw codec, keccak-256 multihash) and linked to its predecessor. A chain is
// identified by its head id; Verify replays it and detects tampering,
// reordering and gaps. Block persistence is pluggable through Store; see the
// localfs and sqlitestore subpackages and storeregistry for selection by name.
package journal
