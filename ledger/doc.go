// Package ledger implements the custody ledger each fund enforces.
//
// Balances are kept per (user, asset) as a packed Word holding two 128-bit
// counters: owned funds the user may withdraw, and escrowed funds a marshal
// has committed. Marshal operations consult a shared Authorizer on every
// call; a fund never caches authorization state.
package ledger
