package main

import (
	"fmt"
	"io"
	"os"

	"github.com/lifehaverdev/credit-vault-sub001/internal/logging"

	_ "github.com/lifehaverdev/credit-vault-sub001/journal/localfs"
	_ "github.com/lifehaverdev/credit-vault-sub001/journal/sqlitestore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	cfg := logging.DefaultConfig(logging.ProfileCLI)
	cfg.Out = errOut
	logging.ApplyEnv(&cfg, os.Getenv)
	logger := logging.Install("vaultctl", cfg)

	switch args[0] {
	case "call":
		return cmdCall(args[1:], out, errOut, logger)
	case "custody":
		return cmdCustody(args[1:], out, errOut)
	case "derive":
		return cmdDerive(args[1:], out, errOut)
	case "journal":
		return cmdJournal(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "mine":
		return cmdMine(args[1:], out, errOut, logger)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "vaultctl: credit vault operator CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vaultctl derive create2 --deployer <addr> --salt <hash> (--init-code-hash <hash> | --init-code <hex>) [--expect <addr>] [--print-verify]")
	fmt.Fprintln(w, "  vaultctl derive fund --hub <addr> --beacon <addr> --template <hex> --owner <addr> [--salt <hash>] [--expect <addr>] [--print-verify]")
	fmt.Fprintln(w, "  vaultctl mine (--deployer <addr> --init-code-hash <hash> | --hub <addr> --beacon <addr> --template <hex> --owner <addr>) --prefix <hex> [--bits <n>]")
	fmt.Fprintln(w, "               [--payload <hex>] [--start <n> --end <n> | --partition <x> --partition-size <n>] [--workers <n>] [--chunk <n>] [--env <file>]")
	fmt.Fprintln(w, "  vaultctl key init --name <name> [--seed-hex <64hex>] [--force] [--dir <dir>]")
	fmt.Fprintln(w, "  vaultctl key derive --from <name> --role <role> [--force] [--dir <dir>]")
	fmt.Fprintln(w, "  vaultctl key list [--dir <dir>]")
	fmt.Fprintln(w, "  vaultctl key show --name <name> [--role <role>] [--scheme ed25519|dilithium3] [--dir <dir>]")
	fmt.Fprintln(w, "  vaultctl custody key --user <addr> --asset <addr>")
	fmt.Fprintln(w, "  vaultctl custody split <word>")
	fmt.Fprintln(w, "  vaultctl custody pack --owned <n> --escrow <n>")
	fmt.Fprintln(w, "  vaultctl journal verify --backend <name> [--set key=value ...] (--head <cid> | --chain <name>) [-v]")
	fmt.Fprintln(w, "  vaultctl call <method> --target <host:port> [signer flags] [method flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - addresses are 0x-prefixed hex; mixed case must carry a valid EIP-55 checksum")
	fmt.Fprintln(w, "  - amounts are decimal or 0x-prefixed hex")
	fmt.Fprintln(w, "  - derive, mine and call read unset flags from CREDITVAULT_<FLAG> in the environment or the --env file")
	fmt.Fprintln(w, "  - keys are stored under ~/.creditvault/keys/<name> (0600 seed files)")
	fmt.Fprintln(w, "  - run `vaultctl call help` for the call methods")
}
