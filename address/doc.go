// Package address implements deterministic deployment-address derivation.
//
// Every function here is pure. Create2 follows EIP-1014 exactly and the
// beacon-proxy variant derives its code fingerprint from the proxy creation
// code plus the ABI-encoded (beacon, initCalldata) constructor arguments, so a
// salt found offline reproduces the on-chain address.
package address
