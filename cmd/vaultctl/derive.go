package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/hub"
)

func cmdDerive(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printDeriveUsage(errOut)
		return 2
	}
	switch args[0] {
	case "create2":
		return cmdDeriveCreate2(args[1:], out, errOut)
	case "fund":
		return cmdDeriveFund(args[1:], out, errOut)
	case "help", "-h", "--help":
		printDeriveUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown derive subcommand: %s\n\n", args[0])
		printDeriveUsage(errOut)
		return 2
	}
}

func printDeriveUsage(w io.Writer) {
	fmt.Fprintln(w, "vaultctl derive: compute deterministic deployment addresses")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vaultctl derive create2 --deployer <addr> --salt <hash> (--init-code-hash <hash> | --init-code <hex>) [--expect <addr>] [--print-verify]")
	fmt.Fprintln(w, "  vaultctl derive fund --hub <addr> --beacon <addr> --template <hex> --owner <addr> [--salt <hash>] [--expect <addr>] [--print-verify]")
}

func cmdDeriveCreate2(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("derive create2", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var deployer, expect addrFlag
	var salt, initCodeHash hashFlag
	var initCode hexFlag
	var printVerify bool
	var envFile string

	fs.Var(&deployer, "deployer", "Deploying address")
	fs.Var(&salt, "salt", "32-byte salt")
	fs.Var(&initCodeHash, "init-code-hash", "keccak256 of the init code")
	fs.Var(&initCode, "init-code", "Init code as hex (hashed for you)")
	fs.Var(&expect, "expect", "Fail unless the derived address equals this one")
	fs.BoolVar(&printVerify, "print-verify", false, "Print the inputs and a command that re-checks the result")
	fs.StringVar(&envFile, "env", "", "Optional .env file with CREDITVAULT_* defaults")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := applyEnv(fs, envFile); err != nil {
		fmt.Fprintf(errOut, "env: %v\n", err)
		return 2
	}
	if !deployer.set {
		fmt.Fprintln(errOut, "missing --deployer")
		return 2
	}
	if !salt.set {
		fmt.Fprintln(errOut, "missing --salt")
		return 2
	}
	fingerprint, ok := fingerprintFrom(initCodeHash, initCode, errOut)
	if !ok {
		return 2
	}

	addr := address.Create2(deployer.v, salt.v, fingerprint)
	return reportDerived(out, errOut, addr, expect, printVerify, deployer.v, salt.v, fingerprint)
}

func cmdDeriveFund(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("derive fund", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var hubAddr, beacon, owner, expect addrFlag
	var salt hashFlag
	var template hexFlag
	var printVerify bool
	var envFile string

	fs.Var(&hubAddr, "hub", "Hub address (the deployer)")
	fs.Var(&beacon, "beacon", "Beacon address")
	fs.Var(&template, "template", "Beacon proxy creation code as hex")
	fs.Var(&owner, "owner", "Fund owner")
	fs.Var(&salt, "salt", "Charter salt (default: the owner's address word)")
	fs.Var(&expect, "expect", "Fail unless the derived address equals this one")
	fs.BoolVar(&printVerify, "print-verify", false, "Print the inputs and a command that re-checks the result")
	fs.StringVar(&envFile, "env", "", "Optional .env file with CREDITVAULT_* defaults")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := applyEnv(fs, envFile); err != nil {
		fmt.Fprintf(errOut, "env: %v\n", err)
		return 2
	}
	if !hubAddr.set || !beacon.set || !owner.set {
		fmt.Fprintln(errOut, "missing --hub, --beacon or --owner")
		return 2
	}
	if !template.set || len(template.v) == 0 {
		fmt.Fprintln(errOut, "missing --template")
		return 2
	}

	effective := hub.EffectiveSalt(owner.v, salt.v)
	fingerprint := address.BeaconProxyFingerprint(template.v, beacon.v, hub.InitCalldata(hubAddr.v, owner.v))
	addr := hub.FundAddress(hubAddr.v, beacon.v, template.v, owner.v, salt.v)
	return reportDerived(out, errOut, addr, expect, printVerify, hubAddr.v, effective, fingerprint)
}

func fingerprintFrom(initCodeHash hashFlag, initCode hexFlag, errOut io.Writer) (address.Hash, bool) {
	switch {
	case initCodeHash.set && initCode.set:
		fmt.Fprintln(errOut, "use only one of --init-code-hash and --init-code")
		return address.Hash{}, false
	case initCodeHash.set:
		return initCodeHash.v, true
	case initCode.set:
		return address.InitCodeHash(initCode.v), true
	}
	fmt.Fprintln(errOut, "missing --init-code-hash or --init-code")
	return address.Hash{}, false
}

// reportDerived prints addr, checks it against expect when given, and with
// printVerify shows a create2 invocation that reproduces it.
func reportDerived(out, errOut io.Writer, addr address.Address, expect addrFlag, printVerify bool, deployer address.Address, salt, fingerprint address.Hash) int {
	fmt.Fprintln(out, addr.Hex())
	if printVerify {
		fmt.Fprintf(out, "# deployer       %s\n", deployer.Hex())
		fmt.Fprintf(out, "# salt           %s\n", salt.Hex())
		fmt.Fprintf(out, "# init-code-hash %s\n", fingerprint.Hex())
		fmt.Fprintf(out, "# verify: vaultctl derive create2 --deployer %s --salt %s --init-code-hash %s --expect %s\n",
			deployer.Hex(), salt.Hex(), fingerprint.Hex(), addr.Hex())
	}
	if expect.set {
		if err := address.MustMatch(addr, expect.v); err != nil {
			fmt.Fprintf(errOut, "verify: %v\n", err)
			return 1
		}
	}
	return 0
}
