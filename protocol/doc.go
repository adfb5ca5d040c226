// Package protocol holds the error taxonomy shared by the vault packages.
//
// Ledger and authorization failures are synchronous and not retryable at the
// protocol level; the caller must correct the precondition and resubmit.
// SaltNotFound is recoverable by searching another range. AddressMismatch is
// fatal: a derived address disagreed with an observed deployment and nothing
// derived from it may be used.
package protocol
