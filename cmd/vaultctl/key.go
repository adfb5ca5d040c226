package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"

	"github.com/lifehaverdev/credit-vault-sub001/keys"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "show":
		return cmdKeyShow(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "vaultctl key: local operator keys (governance, marshals)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vaultctl key init --name <name> [--seed-hex <64hex>] [--force] [--dir <dir>]")
	fmt.Fprintln(w, "  vaultctl key derive --from <name> --role <role> [--force] [--dir <dir>]")
	fmt.Fprintln(w, "  vaultctl key list [--dir <dir>]")
	fmt.Fprintln(w, "  vaultctl key show --name <name> [--role <role>] [--scheme ed25519|dilithium3] [--dir <dir>]")
}

func openKeyStore(dir string, errOut io.Writer) (*keys.KeyStore, bool) {
	ks, err := keys.OpenKeyStore(dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, false
	}
	return ks, true
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name, seedHex, dir string
	var force bool

	fs.StringVar(&name, "name", "", "Key name (directory under the key store)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional seed as 64 hex chars (for reproducible setups)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")
	fs.StringVar(&dir, "dir", "", "Key store directory (default ~/.creditvault/keys)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}

	var seed []byte
	if seedHex != "" {
		var err error
		if seed, err = keys.ParseSeedHex(seedHex); err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, keys.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	ks, ok := openKeyStore(dir, errOut)
	if !ok {
		return 1
	}
	path, err := ks.InitRoot(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	signer, err := keys.NewSigner(keys.SchemeEd25519, seed)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", signer.Address().Hex())
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from, role, dir string
	var force bool

	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. governance, marshal-1)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")
	fs.StringVar(&dir, "dir", "", "Key store directory (default ~/.creditvault/keys)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" {
		fmt.Fprintln(errOut, "missing --from")
		return 2
	}
	if role == "" {
		fmt.Fprintln(errOut, "missing --role")
		return 2
	}
	if err := keys.CheckName(from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, ok := openKeyStore(dir, errOut)
	if !ok {
		return 1
	}
	seed, path, err := ks.DeriveRole(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	signer, err := keys.NewSigner(keys.SchemeEd25519, seed)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role key: %s\n", signer.Address().Hex())
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir string
	fs.StringVar(&dir, "dir", "", "Key store directory (default ~/.creditvault/keys)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, ok := openKeyStore(dir, errOut)
	if !ok {
		return 1
	}
	entries, err := ks.List()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Name)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

func cmdKeyShow(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key show", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name, role, scheme, dir string

	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&role, "role", "", "Optional role (shows the derived role key)")
	fs.StringVar(&scheme, "scheme", keys.SchemeEd25519, "Signature scheme: ed25519 or dilithium3")
	fs.StringVar(&dir, "dir", "", "Key store directory (default ~/.creditvault/keys)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, ok := openKeyStore(dir, errOut)
	if !ok {
		return 1
	}
	signer, err := ks.Signer(scheme, "", name, role, "")
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	pub, err := keys.FormatPublicKey(signer.Scheme(), signer.PublicKey())
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "address    %s\n", signer.Address().Hex())
	fmt.Fprintf(out, "public-key %s\n", pub)
	return 0
}
