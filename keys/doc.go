// Package keys manages operator identities: role seeds derived from a root
// seed, the vault address of a public key, and signing of call digests with
// ed25519 or dilithium3.
//
// KeyStore is a local-first filesystem helper for the CLI and daemon; the
// derivation and signing functions are pure.
package keys
