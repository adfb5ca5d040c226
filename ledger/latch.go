package ledger

import (
	"context"

	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

type latchKey struct{}

// enter marks ctx as inside a fund operation. A context that already carries
// the mark belongs to a transfer hook calling back into the vault and is
// rejected before any lock is taken. The mark lives only as long as the
// derived context, so it is released on every return path.
//
// Detection needs the hook to call back with the context it was given. A
// call on a fresh context skips the latch and waits on the fund's mutex,
// which its own caller holds: that is a deadlock, not an error.
func enter(ctx context.Context, op string) (context.Context, error) {
	if outer, ok := ctx.Value(latchKey{}).(string); ok {
		return nil, protocol.Errorf(protocol.KindReentrancy, op, "called from within %s", outer)
	}
	return context.WithValue(ctx, latchKey{}, op), nil
}

// Entered reports whether ctx is inside a fund operation.
func Entered(ctx context.Context) bool {
	_, ok := ctx.Value(latchKey{}).(string)
	return ok
}
