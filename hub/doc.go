// Package hub charters funds at deterministic beacon-proxy addresses and
// owns the authorization registry they share.
//
// A fund's address depends only on the hub address, the effective salt, the
// proxy template, the beacon address and the owner, so it can be predicted
// (and vanity-mined) before the fund exists.
package hub
