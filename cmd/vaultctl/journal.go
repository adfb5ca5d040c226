package main

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/journal/storeregistry"
)

func cmdJournal(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: vaultctl journal <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: verify, backends")
		return 2
	}
	switch args[0] {
	case "verify":
		return cmdJournalVerify(args[1:], out, errOut)
	case "backends":
		for _, b := range storeregistry.List() {
			fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
			keys := make([]string, 0, len(b.Keys))
			for k := range b.Keys {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "  %s: %s\n", k, b.Keys[k])
			}
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown journal subcommand: %s\n", args[0])
		return 2
	}
}

func cmdJournalVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("journal verify", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var backend, head, chain string
	var sets stringList
	var verbose bool

	fs.StringVar(&backend, "backend", "", "Journal backend (see `vaultctl journal backends`)")
	fs.Var(&sets, "set", "Backend setting key=value (repeatable)")
	fs.StringVar(&head, "head", "", "Head CID to verify from")
	fs.StringVar(&chain, "chain", "", "Named chain whose saved head to verify, e.g. vault.<boot time> as logged by vaultd")
	fs.BoolVar(&verbose, "v", false, "Print every event")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if backend == "" {
		fmt.Fprintln(errOut, "missing --backend")
		return 2
	}
	if (head == "") == (chain == "") {
		fmt.Fprintln(errOut, "need exactly one of --head and --chain")
		return 2
	}
	settings, err := settingsFrom(sets)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --set: %v\n", err)
		return 2
	}

	store, closeStore, err := storeregistry.Open(backend, settings)
	if err != nil {
		fmt.Fprintf(errOut, "open journal: %v\n", err)
		return 1
	}
	if closeStore != nil {
		defer func() { _ = closeStore() }()
	}

	var id cid.Cid
	if head != "" {
		if id, err = cid.Decode(head); err != nil {
			fmt.Fprintf(errOut, "invalid --head: %v\n", err)
			return 2
		}
	} else {
		hs, ok := store.(journal.HeadStore)
		if !ok {
			fmt.Fprintf(errOut, "backend %q does not keep chain heads; use --head\n", backend)
			return 2
		}
		if id, err = hs.LoadHead(chain); err != nil {
			fmt.Fprintf(errOut, "load head %q: %v\n", chain, err)
			return 1
		}
	}

	events, err := journal.Verify(store, id)
	if err != nil {
		fmt.Fprintf(errOut, "verify: %v\n", err)
		return 1
	}
	if verbose {
		for _, ev := range events {
			fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", ev.Seq, ev.Kind, ev.Emitter.Hex(), formatAttrs(ev.Attrs))
		}
	}
	fmt.Fprintf(out, "ok: %d events, head %s\n", len(events), id)
	return 0
}

func formatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, " ")
}
