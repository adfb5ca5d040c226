package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifehaverdev/credit-vault-sub001/keys"
	"github.com/lifehaverdev/credit-vault-sub001/ledger"
	"github.com/lifehaverdev/credit-vault-sub001/vaultrpc"
)

// callMethods lists what `vaultctl call` can invoke; queries need no signer.
var callMethods = []struct {
	name  string
	query bool
	usage string
}{
	{"contribute", false, "--fund <addr> --asset <addr> --amount <n>"},
	{"contribute-for", false, "--fund <addr> --user <addr> --asset <addr> --amount <n>"},
	{"commit", false, "--fund <addr> --user <addr> --asset <addr> --amount <n> [--fee <n>] [--deadline <unix>] [--metadata <hex>]"},
	{"remit", false, "--fund <addr> --user <addr> --asset <addr> --amount <n> [--fee <n>] [--metadata <hex>]"},
	{"rescind", false, "--fund <addr> --asset <addr>"},
	{"charter", false, "--owner <addr> [--salt <hash>]"},
	{"set-marshal", false, "--id <addr> [--authorized=false]"},
	{"set-freeze", false, "--frozen=<bool>"},
	{"upgrade", false, "--name <name> --version <v> [--code-hash <hash>]"},
	{"custody", true, "--fund <addr> (--user <addr> --asset <addr> | --key <hash>)"},
	{"frozen", true, ""},
}

func printCallUsage(w io.Writer) {
	fmt.Fprintln(w, "vaultctl call: invoke a running vaultd")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vaultctl call <method> --target <host:port> [--timeout <d>] [signer] [method flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Signer (signed methods):")
	fmt.Fprintln(w, "  --seed-hex <64hex> | --signer <name> [--signer-role <role>] [--key-dir <dir>] | --key-file <path>")
	fmt.Fprintln(w, "  [--scheme ed25519|dilithium3]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Methods:")
	for _, m := range callMethods {
		fmt.Fprintf(w, "  %-15s %s\n", m.name, m.usage)
	}
}

func cmdCall(args []string, out io.Writer, errOut io.Writer, logger zerolog.Logger) int {
	if len(args) == 0 {
		printCallUsage(errOut)
		return 2
	}
	method := args[0]
	if method == "help" || method == "-h" || method == "--help" {
		printCallUsage(out)
		return 0
	}
	query, known := false, false
	for _, m := range callMethods {
		if m.name == method {
			query, known = m.query, true
		}
	}
	if !known {
		fmt.Fprintf(errOut, "unknown call method: %s\n\n", method)
		printCallUsage(errOut)
		return 2
	}

	fs := flag.NewFlagSet("call "+method, flag.ContinueOnError)
	fs.SetOutput(errOut)

	var target, scheme, seedHex, signerName, signerRole, keyFile, keyDir, envFile string
	var timeout time.Duration
	fs.StringVar(&target, "target", "127.0.0.1:7788", "vaultd address")
	fs.DurationVar(&timeout, "timeout", 10*time.Second, "Per-call timeout")
	fs.StringVar(&scheme, "scheme", keys.SchemeEd25519, "Signature scheme: ed25519 or dilithium3")
	fs.StringVar(&seedHex, "seed-hex", "", "Signer seed as 64 hex chars")
	fs.StringVar(&signerName, "signer", "", "Signer key name in the key store")
	fs.StringVar(&signerRole, "signer-role", "", "Derived role of --signer")
	fs.StringVar(&keyFile, "key-file", "", "Signer seed file")
	fs.StringVar(&keyDir, "key-dir", "", "Key store directory (default ~/.creditvault/keys)")
	fs.StringVar(&envFile, "env", "", "Optional .env file with CREDITVAULT_* defaults")

	var fund, user, asset, owner, id addrFlag
	var salt, key, codeHash hashFlag
	var amount, fee amountFlag
	var metadata hexFlag
	var deadline uint64
	var authorized, frozen bool
	var name, version string
	fs.Var(&fund, "fund", "Fund address")
	fs.Var(&user, "user", "User address")
	fs.Var(&asset, "asset", "Asset address")
	fs.Var(&owner, "owner", "Fund owner (charter)")
	fs.Var(&id, "id", "Marshal address (set-marshal)")
	fs.Var(&salt, "salt", "Charter salt (default: owner word)")
	fs.Var(&key, "key", "Custody key (custody)")
	fs.Var(&codeHash, "code-hash", "Implementation code hash (upgrade)")
	fs.Var(&amount, "amount", "Amount")
	fs.Var(&fee, "fee", "Fee")
	fs.Var(&metadata, "metadata", "Opaque metadata as hex")
	fs.Uint64Var(&deadline, "deadline", 0, "Commit deadline, unix seconds (0 = none)")
	fs.BoolVar(&authorized, "authorized", true, "Marshal state (set-marshal)")
	fs.BoolVar(&frozen, "frozen", false, "Freeze state (set-freeze)")
	fs.StringVar(&name, "name", "", "Implementation name (upgrade)")
	fs.StringVar(&version, "version", "", "Implementation version (upgrade)")

	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if err := applyEnv(fs, envFile); err != nil {
		fmt.Fprintf(errOut, "env: %v\n", err)
		return 2
	}

	var signer keys.Signer
	if !query {
		ks, ok := openKeyStore(keyDir, errOut)
		if !ok {
			return 1
		}
		var err error
		if signer, err = ks.Signer(scheme, seedHex, signerName, signerRole, keyFile); err != nil {
			fmt.Fprintf(errOut, "signer: %v\n", err)
			return 2
		}
	}

	client, err := vaultrpc.Dial(target, signer, vaultrpc.DialOptions{Timeout: timeout})
	if err != nil {
		fmt.Fprintf(errOut, "dial %s: %v\n", target, err)
		return 1
	}
	defer client.Close()
	client.Timeout = timeout

	logger.Debug().Str("method", method).Str("target", target).Str("caller", client.Caller().Hex()).Msg("call")

	ctx := context.Background()
	need := func(ok bool, what string) bool {
		if !ok {
			fmt.Fprintf(errOut, "%s: missing %s\n", method, what)
		}
		return ok
	}

	var view vaultrpc.CustodyView
	switch method {
	case "contribute":
		if !need(fund.set && asset.set && amount.v != nil, "--fund, --asset or --amount") {
			return 2
		}
		view, err = client.Contribute(ctx, fund.v, asset.v, amount.v)
	case "contribute-for":
		if !need(fund.set && user.set && asset.set && amount.v != nil, "--fund, --user, --asset or --amount") {
			return 2
		}
		view, err = client.ContributeFor(ctx, fund.v, user.v, asset.v, amount.v)
	case "commit":
		if !need(fund.set && user.set && asset.set && amount.v != nil, "--fund, --user, --asset or --amount") {
			return 2
		}
		view, err = client.Commit(ctx, fund.v, ledger.CommitOrder{
			Fund:     fund.v,
			User:     user.v,
			Asset:    asset.v,
			Amount:   amount.v,
			Fee:      fee.value(),
			Deadline: deadline,
			Metadata: metadata.v,
		})
	case "remit":
		if !need(fund.set && user.set && asset.set && amount.v != nil, "--fund, --user, --asset or --amount") {
			return 2
		}
		view, err = client.Remit(ctx, fund.v, ledger.RemitOrder{
			User:     user.v,
			Asset:    asset.v,
			Amount:   amount.v,
			Fee:      fee.value(),
			Metadata: metadata.v,
		})
	case "rescind":
		if !need(fund.set && asset.set, "--fund or --asset") {
			return 2
		}
		view, err = client.RequestRescission(ctx, fund.v, asset.v)
	case "custody":
		if !need(fund.set && (key.set || (user.set && asset.set)), "--fund and --key or --user/--asset") {
			return 2
		}
		if key.set {
			view, err = client.CustodyByKey(ctx, fund.v, key.v)
		} else {
			view, err = client.Custody(ctx, fund.v, user.v, asset.v)
		}
	case "charter":
		if !need(owner.set, "--owner") {
			return 2
		}
		addr, err := client.CharterFund(ctx, owner.v, salt.v)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", method, err)
			return 1
		}
		fmt.Fprintln(out, addr.Hex())
		return 0
	case "set-marshal":
		if !need(id.set, "--id") {
			return 2
		}
		return reportOK(out, errOut, method, client.SetMarshal(ctx, id.v, authorized))
	case "set-freeze":
		return reportOK(out, errOut, method, client.SetFreeze(ctx, frozen))
	case "upgrade":
		if !need(name != "" && version != "", "--name or --version") {
			return 2
		}
		return reportOK(out, errOut, method, client.Upgrade(ctx, ledger.Implementation{Name: name, Version: version, CodeHash: codeHash.v}))
	case "frozen":
		v, err := client.MarshalFrozen(ctx)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", method, err)
			return 1
		}
		fmt.Fprintln(out, v)
		return 0
	}
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", method, err)
		return 1
	}
	fmt.Fprintf(out, "fund    %s\n", view.Fund.Hex())
	fmt.Fprintf(out, "custody %s\n", view.Word.Hex())
	fmt.Fprintf(out, "owned   %s\n", view.Record.Owned.Dec())
	fmt.Fprintf(out, "escrow  %s\n", view.Record.Escrow.Dec())
	return 0
}

func reportOK(out, errOut io.Writer, method string, err error) int {
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", method, err)
		return 1
	}
	fmt.Fprintln(out, "ok")
	return 0
}
