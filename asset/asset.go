package asset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/lifehaverdev/credit-vault-sub001/address"
)

// Native identifies the chain's native asset.
var Native = address.Zero

var (
	ErrInsufficientBalance = errors.New("asset: insufficient balance")
	ErrInvalidAmount       = errors.New("asset: invalid amount")
	ErrBalanceOverflow     = errors.New("asset: balance overflow")
)

// Transferer moves value between accounts. A call either completes fully or
// fails with no effect.
//
// ctx carries the caller's execution scope. Implementations that notify the
// recipient (a delegated transfer hook) must pass ctx through to the hook so a
// re-entrant call into the vault can be recognised. A hook that drops ctx
// (for example by calling back with context.Background()) is not recognised:
// hooks run on the transferring goroutine while the fund's lock is held, so
// such a call into the same fund blocks forever instead of failing with
// Reentrancy.
type Transferer interface {
	Transfer(ctx context.Context, asset, from, to address.Address, amount *uint256.Int) error
}

// Movement describes a completed balance move handed to hooks.
type Movement struct {
	Asset  address.Address
	From   address.Address
	To     address.Address
	Amount uint256.Int
}

// Hook runs after a move has been applied. Returning an error reverts the move
// and fails the transfer.
type Hook func(ctx context.Context, m Movement) error

// Bank is an in-memory Transferer keeping per-asset balances.
//
// It stands in for the chain's asset layer in tests and in the daemon.
type Bank struct {
	mu       sync.Mutex
	balances map[address.Address]map[address.Address]uint256.Int
	hooks    []Hook
}

func NewBank() *Bank {
	return &Bank{balances: make(map[address.Address]map[address.Address]uint256.Int)}
}

// OnTransfer registers a hook invoked after every successful move.
func (b *Bank) OnTransfer(h Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, h)
}

// Mint credits amount of asset to holder.
func (b *Bank) Mint(asset, holder address.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.credit(asset, holder, amount)
}

// BalanceOf returns holder's balance of asset.
func (b *Bank) BalanceOf(asset, holder address.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balances[asset][holder]
	return new(uint256.Int).Set(&bal)
}

// Holders returns every account holding a non-zero balance of asset, sorted.
func (b *Bank) Holders(asset address.Address) []address.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]address.Address, 0, len(b.balances[asset]))
	for h, bal := range b.balances[asset] {
		if !bal.IsZero() {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i][:]) < string(out[j][:]) })
	return out
}

func (b *Bank) Transfer(ctx context.Context, asset, from, to address.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if err := b.move(asset, from, to, amount); err != nil {
		b.mu.Unlock()
		return err
	}
	hooks := append([]Hook(nil), b.hooks...)
	b.mu.Unlock()

	m := Movement{Asset: asset, From: from, To: to, Amount: *amount}
	for _, h := range hooks {
		if err := h(ctx, m); err != nil {
			b.mu.Lock()
			rerr := b.move(asset, to, from, amount)
			b.mu.Unlock()
			if rerr != nil {
				return fmt.Errorf("asset: hook rejected transfer (%v) and revert failed: %w", err, rerr)
			}
			return fmt.Errorf("asset: hook rejected transfer: %w", err)
		}
	}
	return nil
}

func (b *Bank) move(asset, from, to address.Address, amount *uint256.Int) error {
	bal := b.balances[asset][from]
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, need %s", ErrInsufficientBalance, from.Hex(), bal.Dec(), asset.Hex(), amount.Dec())
	}
	if from == to {
		return nil
	}
	if err := b.credit(asset, to, amount); err != nil {
		return err
	}
	bal.Sub(&bal, amount)
	b.balances[asset][from] = bal
	return nil
}

func (b *Bank) credit(asset, holder address.Address, amount *uint256.Int) error {
	accounts, ok := b.balances[asset]
	if !ok {
		accounts = make(map[address.Address]uint256.Int)
		b.balances[asset] = accounts
	}
	bal := accounts[holder]
	if _, overflow := bal.AddOverflow(&bal, amount); overflow {
		return ErrBalanceOverflow
	}
	accounts[holder] = bal
	return nil
}
