package miner

import (
	"context"
	"math"
	"math/bits"
	"runtime"
	"sync"

	"go.uber.org/atomic"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

// Range is the half-open integer interval [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

func (r Range) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Partition returns the x-th chunk of size l: [l·x, l·(x+1)).
func Partition(x, l uint64) (Range, error) {
	const op = "partition"
	if l == 0 {
		return Range{}, protocol.Errorf(protocol.KindInvalidArgument, op, "chunk size must be positive")
	}
	hi, start := bits.Mul64(l, x)
	if hi != 0 {
		return Range{}, protocol.Errorf(protocol.KindOverflow, op, "partition %d of size %d overflows uint64", x, l)
	}
	end, carry := bits.Add64(start, l, 0)
	if carry != 0 {
		return Range{}, protocol.Errorf(protocol.KindOverflow, op, "partition %d of size %d overflows uint64", x, l)
	}
	return Range{Start: start, End: end}, nil
}

// Result is a successful search.
type Result struct {
	Index   uint64
	Salt    address.Hash
	Address address.Address
}

// Search binds a derivation, a salt encoding and a predicate.
type Search struct {
	Derive func(salt address.Hash) address.Address
	Encode SaltEncoder
	Match  Predicate
}

// Create2Search searches salts for deployer and a fixed code fingerprint.
func Create2Search(deployer address.Address, fingerprint address.Hash, encode SaltEncoder, match Predicate) Search {
	return Search{
		Derive: func(salt address.Hash) address.Address { return address.Create2(deployer, salt, fingerprint) },
		Encode: encode,
		Match:  match,
	}
}

// cancelEvery bounds how many candidates are tried between context checks.
const cancelEvery = 1 << 12

func (s Search) validate(op string) error {
	if s.Derive == nil || s.Match == nil {
		return protocol.Errorf(protocol.KindInvalidArgument, op, "search needs Derive and Match")
	}
	return nil
}

func (s Search) encoder() SaltEncoder {
	if s.Encode == nil {
		return RawSalt
	}
	return s.Encode
}

// Try evaluates a single index.
func (s Search) Try(i uint64) (Result, bool) {
	salt := s.encoder()(i)
	a := s.Derive(salt)
	if !s.Match(a) {
		return Result{}, false
	}
	return Result{Index: i, Salt: salt, Address: a}, true
}

// Mine returns the smallest index in r whose derived address matches, or
// SaltNotFound once r is exhausted.
func (s Search) Mine(ctx context.Context, r Range) (Result, error) {
	const op = "mine"
	if err := s.validate(op); err != nil {
		return Result{}, err
	}
	for i := r.Start; i < r.End; i++ {
		if (i-r.Start)%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		if res, ok := s.Try(i); ok {
			return res, nil
		}
	}
	return Result{}, protocol.Errorf(protocol.KindSaltNotFound, op, "no match in %s", r)
}

// Options configure MineParallel.
type Options struct {
	// Workers defaults to GOMAXPROCS.
	Workers int
	// Chunk is the number of consecutive indices a worker claims at a time.
	Chunk uint64
}

const DefaultChunk = 1 << 14

const none = math.MaxUint64

// MineParallel splits r into chunks shared across workers and returns the
// same result Mine would: the smallest matching index.
//
// Workers claim chunks in ascending order. Once a match is known, chunks above
// it are skipped and in-flight scans stop at it, so the work after the first
// hit is bounded by one chunk per worker.
func (s Search) MineParallel(ctx context.Context, r Range, opts Options) (Result, error) {
	const op = "mineParallel"
	if err := s.validate(op); err != nil {
		return Result{}, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := opts.Chunk
	if chunk == 0 {
		chunk = DefaultChunk
	}
	total := r.Len()
	if total == 0 {
		return Result{}, protocol.Errorf(protocol.KindSaltNotFound, op, "empty range %s", r)
	}
	chunks := total / chunk
	if total%chunk != 0 {
		chunks++
	}

	var (
		next    atomic.Uint64
		best    = atomic.NewUint64(none)
		aborted atomic.Bool
		wg      sync.WaitGroup
	)
	lower := func(i uint64) {
		for {
			cur := best.Load()
			if i >= cur || best.CompareAndSwap(cur, i) {
				return
			}
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				n := next.Inc() - 1
				if n >= chunks {
					return
				}
				if ctx.Err() != nil {
					aborted.Store(true)
					return
				}
				start := r.Start + n*chunk
				if start >= best.Load() {
					return
				}
				end := r.End
				if chunk < end-start {
					end = start + chunk
				}
				for i := start; i < end; i++ {
					if (i-start)%cancelEvery == 0 {
						if ctx.Err() != nil {
							aborted.Store(true)
							return
						}
						if i >= best.Load() {
							break
						}
					}
					if _, ok := s.Try(i); ok {
						lower(i)
						break
					}
				}
			}
		}()
	}
	wg.Wait()

	// A cancelled scan may have left a lower chunk unfinished, so a match
	// found elsewhere is not known to be the smallest.
	if aborted.Load() {
		return Result{}, ctx.Err()
	}
	if idx := best.Load(); idx != none {
		res, _ := s.Try(idx)
		return res, nil
	}
	return Result{}, protocol.Errorf(protocol.KindSaltNotFound, op, "no match in %s", r)
}
