package ledger

import (
	"context"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/asset"
	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// Authorizer gates marshal operations. It returns a Frozen or Unauthorized
// error when op may not run for caller.
type Authorizer interface {
	Authorize(op string, caller address.Address) error
}

// Implementation identifies the code a fund currently runs.
type Implementation struct {
	Name     string       `json:"name" toml:"name"`
	Version  string       `json:"version" toml:"version"`
	CodeHash address.Hash `json:"code_hash" toml:"code_hash"`
}

// ImplementationSource resolves the current implementation at call time.
type ImplementationSource interface {
	Implementation() Implementation
}

// Config wires a Fund to its collaborators.
type Config struct {
	Address    address.Address
	Owner      address.Address
	Hub        address.Address
	Authorizer Authorizer
	Beacon     ImplementationSource
	Transferer asset.Transferer
	Events     journal.Emitter
	Clock      func() time.Time
}

// Fund is one sub-vault's custody ledger.
//
// Every operation runs under the fund's mutex. Balances are updated before the
// external transfer and restored if it fails, so no caller ever observes a
// half-applied operation.
type Fund struct {
	cfg Config

	mu      sync.Mutex
	custody map[address.Hash]Word
	fees    map[address.Address]uint256.Int
}

// NewFund returns an empty fund.
func NewFund(cfg Config) (*Fund, error) {
	const op = "newFund"
	switch {
	case cfg.Authorizer == nil:
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "authorizer is required")
	case cfg.Transferer == nil:
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "transferer is required")
	case cfg.Address.IsZero():
		return nil, protocol.Errorf(protocol.KindInvalidArgument, op, "fund address is required")
	}
	if cfg.Events == nil {
		cfg.Events = journal.Discard
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Fund{
		cfg:     cfg,
		custody: make(map[address.Hash]Word),
		fees:    make(map[address.Address]uint256.Int),
	}, nil
}

func (f *Fund) Address() address.Address { return f.cfg.Address }
func (f *Fund) Owner() address.Address   { return f.cfg.Owner }
func (f *Fund) Hub() address.Address     { return f.cfg.Hub }

// Implementation returns the implementation the fund's beacon points at now.
func (f *Fund) Implementation() Implementation {
	if f.cfg.Beacon == nil {
		return Implementation{}
	}
	return f.cfg.Beacon.Implementation()
}

// Custody returns the packed word stored under key. Unknown keys read as zero.
func (f *Fund) Custody(key address.Hash) Word {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.custody[key]
}

// Balance returns the unpacked record for (user, asset).
func (f *Fund) Balance(user, asset address.Address) Record {
	return f.Custody(address.CustodyKey(user, asset)).Record()
}

// Fees returns the fees accrued by Remit for asset.
func (f *Fund) Fees(asset address.Address) *uint256.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	fee := f.fees[asset]
	return new(uint256.Int).Set(&fee)
}

// CommitOrder moves owned balance into escrow.
//
// Fund must name the fund the order is submitted to. Deadline is a unix time
// in seconds after which the order is rejected; zero means none. Fee is
// recorded with the commitment and settled by a later Remit.
type CommitOrder struct {
	Fund     address.Address
	User     address.Address
	Asset    address.Address
	Amount   *uint256.Int
	Fee      *uint256.Int
	Deadline uint64
	Metadata []byte
}

// RemitOrder releases escrow: Amount goes to User and Fee stays with the fund.
type RemitOrder struct {
	User     address.Address
	Asset    address.Address
	Amount   *uint256.Int
	Fee      *uint256.Int
	Metadata []byte
}

// Contribute pulls amount of asset from caller into the fund and credits it to
// caller's owned balance.
func (f *Fund) Contribute(ctx context.Context, caller, asset address.Address, amount *uint256.Int) error {
	const op = "contribute"
	ctx, err := enter(ctx, op)
	if err != nil {
		return err
	}
	return f.contribute(ctx, op, caller, caller, asset, amount)
}

// ContributeFor pulls amount of asset from caller, a marshal, and credits it
// to user's owned balance.
func (f *Fund) ContributeFor(ctx context.Context, caller, user, asset address.Address, amount *uint256.Int) error {
	const op = "contributeFor"
	ctx, err := enter(ctx, op)
	if err != nil {
		return err
	}
	if err := f.cfg.Authorizer.Authorize(op, caller); err != nil {
		return err
	}
	return f.contribute(ctx, op, caller, user, asset, amount)
}

func (f *Fund) contribute(ctx context.Context, op string, from, user, asset address.Address, amount *uint256.Int) error {
	if err := positive(op, "amount", amount); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := address.CustodyKey(user, asset)
	prev := f.custody[key]
	rec := prev.Record()
	if _, overflow := rec.Owned.AddOverflow(&rec.Owned, amount); overflow || !Fits(&rec.Owned) {
		return protocol.Errorf(protocol.KindOverflow, op, "owned balance of %s would exceed 128 bits", user.Hex())
	}
	next, err := rec.Pack()
	if err != nil {
		return err
	}

	f.custody[key] = next
	if err := f.cfg.Transferer.Transfer(ctx, asset, from, f.cfg.Address, amount); err != nil {
		f.custody[key] = prev
		return protocol.Wrap(protocol.KindTransferFailed, op, "pull "+amount.Dec()+" from "+from.Hex(), err)
	}

	f.emit(journal.KindContributed, map[string]string{
		"from":    from.Hex(),
		"user":    user.Hex(),
		"asset":   asset.Hex(),
		"amount":  amount.Dec(),
		"custody": next.Hex(),
	})
	return nil
}

// Commit moves o.Amount of o.User's owned balance into escrow.
func (f *Fund) Commit(ctx context.Context, caller address.Address, o CommitOrder) error {
	const op = "commit"
	if _, err := enter(ctx, op); err != nil {
		return err
	}
	if err := f.cfg.Authorizer.Authorize(op, caller); err != nil {
		return err
	}
	if o.Fund != f.cfg.Address {
		return protocol.Errorf(protocol.KindInvalidArgument, op, "order addressed to %s, not %s", o.Fund.Hex(), f.cfg.Address.Hex())
	}
	if o.Deadline != 0 && uint64(f.cfg.Clock().Unix()) > o.Deadline {
		return protocol.Errorf(protocol.KindExpired, op, "deadline %d has passed", o.Deadline)
	}
	amount := orZero(o.Amount)

	f.mu.Lock()
	defer f.mu.Unlock()

	key := address.CustodyKey(o.User, o.Asset)
	rec := f.custody[key].Record()
	if rec.Owned.Lt(amount) {
		return protocol.Errorf(protocol.KindInsufficientOwned, op, "%s owns %s, commit needs %s", o.User.Hex(), rec.Owned.Dec(), amount.Dec())
	}
	rec.Owned.Sub(&rec.Owned, amount)
	rec.Escrow.Add(&rec.Escrow, amount)
	next, err := rec.Pack()
	if err != nil {
		return protocol.Wrap(protocol.KindOverflow, op, "escrow balance would exceed 128 bits", err)
	}
	f.custody[key] = next

	f.emit(journal.KindCommitted, map[string]string{
		"marshal":  caller.Hex(),
		"user":     o.User.Hex(),
		"asset":    o.Asset.Hex(),
		"amount":   amount.Dec(),
		"fee":      orZero(o.Fee).Dec(),
		"deadline": strconv.FormatUint(o.Deadline, 10),
		"metadata": hex.EncodeToString(o.Metadata),
		"custody":  next.Hex(),
	})
	return nil
}

// Remit debits Amount+Fee from o.User's escrow, pays Amount to o.User and
// accrues Fee to the fund.
func (f *Fund) Remit(ctx context.Context, caller address.Address, o RemitOrder) error {
	const op = "remit"
	ctx, err := enter(ctx, op)
	if err != nil {
		return err
	}
	if err := f.cfg.Authorizer.Authorize(op, caller); err != nil {
		return err
	}
	amount, fee := orZero(o.Amount), orZero(o.Fee)
	total, overflow := new(uint256.Int).AddOverflow(amount, fee)
	if overflow {
		return protocol.Errorf(protocol.KindOverflow, op, "amount plus fee overflows")
	}
	if total.IsZero() {
		return protocol.Errorf(protocol.KindInvalidArgument, op, "remit of zero amount and zero fee")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := address.CustodyKey(o.User, o.Asset)
	prev := f.custody[key]
	rec := prev.Record()
	if rec.Escrow.Lt(total) {
		return protocol.Errorf(protocol.KindInsufficientEscrow, op, "%s has %s in escrow, remit needs %s", o.User.Hex(), rec.Escrow.Dec(), total.Dec())
	}
	prevFees := f.fees[o.Asset]
	fees, overflow := new(uint256.Int).AddOverflow(&prevFees, fee)
	if overflow {
		return protocol.Errorf(protocol.KindOverflow, op, "accrued fees overflow")
	}
	rec.Escrow.Sub(&rec.Escrow, total)
	next, err := rec.Pack()
	if err != nil {
		return err
	}

	f.custody[key] = next
	f.fees[o.Asset] = *fees
	if !amount.IsZero() {
		if err := f.cfg.Transferer.Transfer(ctx, o.Asset, f.cfg.Address, o.User, amount); err != nil {
			f.custody[key] = prev
			f.fees[o.Asset] = prevFees
			return protocol.Wrap(protocol.KindTransferFailed, op, "pay "+amount.Dec()+" to "+o.User.Hex(), err)
		}
	}

	f.emit(journal.KindRemitted, map[string]string{
		"marshal":  caller.Hex(),
		"user":     o.User.Hex(),
		"asset":    o.Asset.Hex(),
		"amount":   amount.Dec(),
		"fee":      fee.Dec(),
		"metadata": hex.EncodeToString(o.Metadata),
		"custody":  next.Hex(),
	})
	return nil
}

// RequestRescission returns caller's entire owned balance of asset to caller.
// Escrowed funds are not touched.
func (f *Fund) RequestRescission(ctx context.Context, caller, asset address.Address) error {
	const op = "requestRescission"
	ctx, err := enter(ctx, op)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := address.CustodyKey(caller, asset)
	prev := f.custody[key]
	rec := prev.Record()
	if rec.Owned.IsZero() {
		return protocol.Errorf(protocol.KindInsufficientOwned, op, "%s owns nothing of %s", caller.Hex(), asset.Hex())
	}
	amount := new(uint256.Int).Set(&rec.Owned)
	rec.Owned.Clear()
	next, err := rec.Pack()
	if err != nil {
		return err
	}

	f.custody[key] = next
	if err := f.cfg.Transferer.Transfer(ctx, asset, f.cfg.Address, caller, amount); err != nil {
		f.custody[key] = prev
		return protocol.Wrap(protocol.KindTransferFailed, op, "return "+amount.Dec()+" to "+caller.Hex(), err)
	}

	f.emit(journal.KindRescinded, map[string]string{
		"user":    caller.Hex(),
		"asset":   asset.Hex(),
		"amount":  amount.Dec(),
		"custody": next.Hex(),
	})
	return nil
}

func (f *Fund) emit(kind string, attrs map[string]string) {
	f.cfg.Events.Emit(journal.Event{Kind: kind, Emitter: f.cfg.Address, Attrs: attrs})
}

func positive(op, name string, x *uint256.Int) error {
	if x == nil || x.IsZero() {
		return protocol.Errorf(protocol.KindInvalidArgument, op, "%s must be positive", name)
	}
	return nil
}

func orZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}
