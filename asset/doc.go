// Package asset models the external asset-transfer capability the vault relies on.
//
// The vault never implements token semantics itself; it only needs a transfer
// that succeeds atomically or fails as a unit. Bank is an in-memory rendition
// with recipient hooks, which is how delegated-transfer callbacks (and the
// reentry hazard they bring) are reproduced outside a chain.
package asset
