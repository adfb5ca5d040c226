package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/ledger"
)

func cmdCustody(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: vaultctl custody <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: key, split, pack")
		return 2
	}
	switch args[0] {
	case "key":
		fs := flag.NewFlagSet("custody key", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var user, asset addrFlag
		fs.Var(&user, "user", "User address")
		fs.Var(&asset, "asset", "Asset address (0x0 for the native asset)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if !user.set || !asset.set {
			fmt.Fprintln(errOut, "usage: vaultctl custody key --user <addr> --asset <addr>")
			return 2
		}
		fmt.Fprintln(out, address.CustodyKey(user.v, asset.v).Hex())
		return 0
	case "split":
		fs := flag.NewFlagSet("custody split", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: vaultctl custody split <word>")
			return 2
		}
		h, err := address.ParseHash(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "invalid word: %v\n", err)
			return 2
		}
		rec := ledger.Word(h).Record()
		fmt.Fprintf(out, "owned  %s\n", rec.Owned.Dec())
		fmt.Fprintf(out, "escrow %s\n", rec.Escrow.Dec())
		fmt.Fprintf(out, "total  %s\n", rec.Total().Dec())
		return 0
	case "pack":
		fs := flag.NewFlagSet("custody pack", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var owned, escrow amountFlag
		fs.Var(&owned, "owned", "Owned amount")
		fs.Var(&escrow, "escrow", "Escrowed amount")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		w, err := ledger.PackAmount(owned.value(), escrow.value())
		if err != nil {
			fmt.Fprintf(errOut, "pack: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, w.Hex())
		return 0
	default:
		fmt.Fprintf(errOut, "unknown custody subcommand: %s\n", args[0])
		return 2
	}
}
