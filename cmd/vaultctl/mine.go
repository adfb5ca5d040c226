package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/hub"
	"github.com/lifehaverdev/credit-vault-sub001/miner"
	"github.com/lifehaverdev/credit-vault-sub001/protocol"
)

const defaultMineEnd = 1 << 32

func cmdMine(args []string, out io.Writer, errOut io.Writer, logger zerolog.Logger) int {
	fs := flag.NewFlagSet("mine", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var deployer, hubAddr, beacon, owner addrFlag
	var initCodeHash hashFlag
	var initCode, template, payload hexFlag
	var prefix string
	var bits int
	var start, end, partition, partitionSize, chunk uint64
	var workers int
	var timeout time.Duration
	var envFile string

	fs.Var(&deployer, "deployer", "CREATE2 deployer (plain mode)")
	fs.Var(&initCodeHash, "init-code-hash", "keccak256 of the init code (plain mode)")
	fs.Var(&initCode, "init-code", "Init code as hex (plain mode)")
	fs.Var(&hubAddr, "hub", "Hub address (fund mode)")
	fs.Var(&beacon, "beacon", "Beacon address (fund mode)")
	fs.Var(&template, "template", "Beacon proxy creation code as hex (fund mode)")
	fs.Var(&owner, "owner", "Fund owner (fund mode)")
	fs.StringVar(&prefix, "prefix", "", "Wanted address prefix in hex, e.g. 0x0000")
	fs.IntVar(&bits, "bits", 0, "Match only the first n bits of --prefix (default: every nibble given)")
	fs.Var(&payload, "payload", "Fixed bytes placed in the high end of every salt (up to 24)")
	fs.Uint64Var(&start, "start", 0, "First candidate index")
	fs.Uint64Var(&end, "end", defaultMineEnd, "End of the candidate range (exclusive)")
	fs.Uint64Var(&partition, "partition", 0, "Partition index x; scans [x*size, (x+1)*size)")
	fs.Uint64Var(&partitionSize, "partition-size", 0, "Partition length; overrides --start/--end when set")
	fs.IntVar(&workers, "workers", 0, "Parallel workers (default: GOMAXPROCS)")
	fs.Uint64Var(&chunk, "chunk", miner.DefaultChunk, "Indices a worker claims at a time")
	fs.DurationVar(&timeout, "timeout", 0, "Give up after this long (0 = no limit)")
	fs.StringVar(&envFile, "env", "", "Optional .env file with CREDITVAULT_* defaults")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := applyEnv(fs, envFile); err != nil {
		fmt.Fprintf(errOut, "env: %v\n", err)
		return 2
	}

	match, err := predicateFrom(prefix, bits)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --prefix/--bits: %v\n", err)
		return 2
	}
	var encode miner.SaltEncoder = miner.RawSalt
	if payload.set {
		if encode, err = miner.PackedSalt(payload.v); err != nil {
			fmt.Fprintf(errOut, "invalid --payload: %v\n", err)
			return 2
		}
	}

	var search miner.Search
	switch {
	case hubAddr.set || owner.set:
		if deployer.set {
			fmt.Fprintln(errOut, "--deployer cannot be combined with fund mode (--hub/--owner)")
			return 2
		}
		if !hubAddr.set || !beacon.set || !owner.set || len(template.v) == 0 {
			fmt.Fprintln(errOut, "fund mode needs --hub, --beacon, --template and --owner")
			return 2
		}
		search = fundSearch(hubAddr.v, beacon.v, template.v, owner.v)
		search.Encode, search.Match = encode, match
	case deployer.set:
		fingerprint, ok := fingerprintFrom(initCodeHash, initCode, errOut)
		if !ok {
			return 2
		}
		search = miner.Create2Search(deployer.v, fingerprint, encode, match)
	default:
		fmt.Fprintln(errOut, "missing --deployer (plain mode) or --hub/--owner (fund mode)")
		return 2
	}

	r := miner.Range{Start: start, End: end}
	if partitionSize > 0 {
		if r, err = miner.Partition(partition, partitionSize); err != nil {
			fmt.Fprintf(errOut, "invalid --partition: %v\n", err)
			return 2
		}
	} else if r.Len() == 0 {
		fmt.Fprintf(errOut, "empty range %s\n", r)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Info().Str("range", r.String()).Int("workers", workers).Uint64("chunk", chunk).Msg("mining")
	began := time.Now()
	res, err := search.MineParallel(ctx, r, miner.Options{Workers: workers, Chunk: chunk})
	if err != nil {
		if protocol.IsKind(err, protocol.KindSaltNotFound) {
			fmt.Fprintf(errOut, "no matching salt in %s\n", r)
			return 1
		}
		fmt.Fprintf(errOut, "mine: %v\n", err)
		return 1
	}
	logger.Info().Uint64("index", res.Index).Dur("elapsed", time.Since(began)).Msg("salt found")

	fmt.Fprintf(out, "salt    %s\n", res.Salt.Hex())
	fmt.Fprintf(out, "index   %d\n", res.Index)
	fmt.Fprintf(out, "address %s\n", res.Address.Hex())
	return 0
}

// fundSearch derives the address CharterFund would assign to owner for each
// candidate salt, including the owner-word default for the zero salt.
func fundSearch(hubAddr, beacon address.Address, template []byte, owner address.Address) miner.Search {
	fingerprint := address.BeaconProxyFingerprint(template, beacon, hub.InitCalldata(hubAddr, owner))
	return miner.Search{
		Derive: func(salt address.Hash) address.Address {
			return address.Create2(hubAddr, hub.EffectiveSalt(owner, salt), fingerprint)
		},
	}
}

func predicateFrom(prefix string, bits int) (miner.Predicate, error) {
	if prefix == "" {
		return nil, errors.New("missing --prefix")
	}
	if bits == 0 {
		return miner.HexPrefix(prefix)
	}
	b, err := parseHexBytes(prefix)
	if err != nil {
		return nil, err
	}
	return miner.LeadingBits(b, bits)
}
