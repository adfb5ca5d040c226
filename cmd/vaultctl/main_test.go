package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/lifehaverdev/credit-vault-sub001/address"
	"github.com/lifehaverdev/credit-vault-sub001/asset"
	"github.com/lifehaverdev/credit-vault-sub001/hub"
	"github.com/lifehaverdev/credit-vault-sub001/journal"
	"github.com/lifehaverdev/credit-vault-sub001/journal/localfs"
	"github.com/lifehaverdev/credit-vault-sub001/keys"
	"github.com/lifehaverdev/credit-vault-sub001/ledger"
	"github.com/lifehaverdev/credit-vault-sub001/miner"
	"github.com/lifehaverdev/credit-vault-sub001/registry"
	"github.com/lifehaverdev/credit-vault-sub001/vaultrpc"
)

const (
	zeroAddr = "0x0000000000000000000000000000000000000000"
	zeroHash = "0x0000000000000000000000000000000000000000000000000000000000000000"
	hubHex   = "0x00000000000000000000000000000000000000c0"
	beacon   = "0x00000000000000000000000000000000000000b0"
	ownerHex = "0x0000000000000000000000000000000000000001"
	tmplHex  = "0x6080604052"
)

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func field(t *testing.T, output, name string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == name {
			return fields[1]
		}
	}
	t.Fatalf("no %q line in output:\n%s", name, output)
	return ""
}

func TestRun_Usage(t *testing.T) {
	if code, _, _ := runCmd(t); code != 2 {
		t.Fatalf("expected exit 2 without args, got %d", code)
	}
	if code, out, _ := runCmd(t, "help"); code != 0 || !strings.Contains(out, "vaultctl mine") {
		t.Fatalf("help: code %d output %q", code, out)
	}
	if code, _, errOut := runCmd(t, "frobnicate"); code != 2 || !strings.Contains(errOut, "unknown command") {
		t.Fatalf("unknown command: code %d stderr %q", code, errOut)
	}
}

func TestDeriveCreate2_EIP1014Vector(t *testing.T) {
	code, out, errOut := runCmd(t, "derive", "create2", "--deployer", zeroAddr, "--salt", zeroHash, "--init-code", "0x00")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if got := strings.TrimSpace(out); !strings.EqualFold(got, "0x4D1A2e2bB4F88F0250f26Ffff098B0b30B26BF38") {
		t.Fatalf("unexpected address %s", got)
	}

	code, _, errOut = runCmd(t, "derive", "create2", "--deployer", zeroAddr, "--salt", zeroHash, "--init-code", "0x00", "--expect", hubHex)
	if code != 1 || !strings.Contains(errOut, "verify") {
		t.Fatalf("expected mismatch failure, got %d %q", code, errOut)
	}

	if code, _, _ := runCmd(t, "derive", "create2", "--deployer", zeroAddr, "--salt", zeroHash); code != 2 {
		t.Fatalf("expected usage error without init code, got %d", code)
	}
	if code, _, _ := runCmd(t, "derive", "create2", "--deployer", zeroAddr, "--salt", zeroHash, "--init-code", "0x00", "--init-code-hash", zeroHash); code != 2 {
		t.Fatalf("expected usage error with both init code forms, got %d", code)
	}
}

func TestDeriveFund_MatchesHubAndVerifies(t *testing.T) {
	code, out, errOut := runCmd(t, "derive", "fund", "--hub", hubHex, "--beacon", beacon, "--template", tmplHex, "--owner", ownerHex, "--print-verify")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	tmpl, _ := hex.DecodeString(strings.TrimPrefix(tmplHex, "0x"))
	want := hub.FundAddress(address.MustParseAddress(hubHex), address.MustParseAddress(beacon), tmpl, address.MustParseAddress(ownerHex), address.Hash{})
	if lines[0] != want.Hex() {
		t.Fatalf("derived %s, want %s", lines[0], want.Hex())
	}

	var verify string
	for _, l := range lines {
		if rest, ok := strings.CutPrefix(l, "# verify: vaultctl "); ok {
			verify = rest
		}
	}
	if verify == "" {
		t.Fatalf("no verify line in:\n%s", out)
	}
	if code, _, errOut := runCmd(t, strings.Fields(verify)...); code != 0 {
		t.Fatalf("verify command failed (%d): %s", code, errOut)
	}
}

func TestMine_MatchesSerialSearch(t *testing.T) {
	deployer := address.MustParseAddress("0x00000000000000000000000000000000000000a1")
	fingerprint := address.Keccak256([]byte("init code"))
	match, err := miner.HexPrefix("0x00")
	if err != nil {
		t.Fatalf("HexPrefix: %v", err)
	}
	want, err := miner.Create2Search(deployer, fingerprint, miner.RawSalt, match).Mine(context.Background(), miner.Range{Start: 0, End: 20000})
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}

	code, out, errOut := runCmd(t, "mine",
		"--deployer", deployer.Hex(), "--init-code-hash", fingerprint.Hex(),
		"--prefix", "0x00", "--end", "20000", "--workers", "3", "--chunk", "97")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if got := field(t, out, "salt"); got != want.Salt.Hex() {
		t.Fatalf("salt %s, want %s", got, want.Salt.Hex())
	}
	if got := field(t, out, "address"); got != want.Address.Hex() {
		t.Fatalf("address %s, want %s", got, want.Address.Hex())
	}
}

func TestMine_ReadsEnvFile(t *testing.T) {
	deployer := address.MustParseAddress("0x00000000000000000000000000000000000000a1")
	fingerprint := address.Keccak256([]byte("init code"))
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "CREDITVAULT_DEPLOYER=" + deployer.Hex() + "\n" +
		"CREDITVAULT_INIT_CODE_HASH=" + fingerprint.Hex() + "\n" +
		"CREDITVAULT_PREFIX=0x00\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	code, fromEnv, errOut := runCmd(t, "mine", "--env", envFile, "--end", "20000")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	code, fromFlags, errOut := runCmd(t, "mine", "--deployer", deployer.Hex(), "--init-code-hash", fingerprint.Hex(), "--prefix", "0x00", "--end", "20000")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if fromEnv != fromFlags {
		t.Fatalf("env run %q differs from flag run %q", fromEnv, fromFlags)
	}

	// Flags win over the file.
	code, _, errOut = runCmd(t, "mine", "--env", envFile, "--prefix", "zz")
	if code != 2 || !strings.Contains(errOut, "--prefix") {
		t.Fatalf("expected flag to override env, got %d %q", code, errOut)
	}
}

func TestMine_PartitionAndNotFound(t *testing.T) {
	code, _, errOut := runCmd(t, "mine",
		"--deployer", hubHex, "--init-code-hash", zeroHash,
		"--prefix", "0x00000000", "--partition", "3", "--partition-size", "16")
	if code != 1 || !strings.Contains(errOut, "[48,64)") {
		t.Fatalf("expected not found in [48,64), got %d %q", code, errOut)
	}
	if code, _, _ := runCmd(t, "mine", "--deployer", hubHex, "--init-code-hash", zeroHash, "--prefix", "0x0", "--start", "5", "--end", "5"); code != 2 {
		t.Fatalf("expected usage error for empty range, got %d", code)
	}
}

func TestMine_FundModeChartersAtMinedAddress(t *testing.T) {
	code, out, errOut := runCmd(t, "mine",
		"--hub", hubHex, "--beacon", beacon, "--template", tmplHex, "--owner", ownerHex,
		"--prefix", "0x0", "--payload", "0xc0ffee", "--end", "5000")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	salt, err := address.ParseHash(field(t, out, "salt"))
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	if salt[0] != 0xc0 || salt[1] != 0xff || salt[2] != 0xee {
		t.Fatalf("payload missing from salt %s", salt.Hex())
	}
	tmpl, _ := hex.DecodeString(strings.TrimPrefix(tmplHex, "0x"))
	want := hub.FundAddress(address.MustParseAddress(hubHex), address.MustParseAddress(beacon), tmpl, address.MustParseAddress(ownerHex), salt)
	if got := field(t, out, "address"); got != want.Hex() {
		t.Fatalf("mined %s, fund would be %s", got, want.Hex())
	}
	if !strings.HasPrefix(strings.ToLower(want.Hex()), "0x0") {
		t.Fatalf("address %s lacks prefix", want.Hex())
	}
}

func TestKey_InitDeriveListShow(t *testing.T) {
	dir := t.TempDir()
	seed := strings.Repeat("11", keys.SeedSize)

	code, out, errOut := runCmd(t, "key", "init", "--dir", dir, "--name", "ops", "--seed-hex", seed)
	if code != 0 {
		t.Fatalf("init: %d %s", code, errOut)
	}
	root, _ := keys.ParseSeedHex(seed)
	rootSigner, _ := keys.NewSigner(keys.SchemeEd25519, root)
	if !strings.Contains(out, rootSigner.Address().Hex()) {
		t.Fatalf("init output %q lacks address %s", out, rootSigner.Address().Hex())
	}
	if code, _, _ := runCmd(t, "key", "init", "--dir", dir, "--name", "ops", "--seed-hex", seed); code != 1 {
		t.Fatalf("expected existing key to be kept, got %d", code)
	}

	if code, _, errOut := runCmd(t, "key", "derive", "--dir", dir, "--from", "ops", "--role", "marshal"); code != 0 {
		t.Fatalf("derive: %d %s", code, errOut)
	}
	code, out, _ = runCmd(t, "key", "list", "--dir", dir)
	if code != 0 || out != "ops\n  - marshal\n" {
		t.Fatalf("list: %d %q", code, out)
	}

	roleSeed, _ := keys.DeriveRoleSeed(root, "marshal")
	roleSigner, _ := keys.NewSigner(keys.SchemeEd25519, roleSeed)
	code, out, errOut = runCmd(t, "key", "show", "--dir", dir, "--name", "ops", "--role", "marshal")
	if code != 0 {
		t.Fatalf("show: %d %s", code, errOut)
	}
	if got := field(t, out, "address"); got != roleSigner.Address().Hex() {
		t.Fatalf("show address %s, want %s", got, roleSigner.Address().Hex())
	}
	if !strings.HasPrefix(field(t, out, "public-key"), "ed25519:") {
		t.Fatalf("unexpected public key line in %q", out)
	}

	if code, _, _ := runCmd(t, "key", "init", "--dir", dir, "--name", "bad/name"); code != 2 {
		t.Fatalf("expected invalid name to be rejected")
	}
}

func TestCustody_KeyPackSplit(t *testing.T) {
	user := address.MustParseAddress("0x0000000000000000000000000000000000000002")
	token := address.MustParseAddress("0x0000000000000000000000000000000000001111")
	code, out, _ := runCmd(t, "custody", "key", "--user", user.Hex(), "--asset", token.Hex())
	if code != 0 || strings.TrimSpace(out) != address.CustodyKey(user, token).Hex() {
		t.Fatalf("custody key: %d %q", code, out)
	}

	code, out, errOut := runCmd(t, "custody", "pack", "--owned", "700", "--escrow", "0x12c")
	if code != 0 {
		t.Fatalf("pack: %d %s", code, errOut)
	}
	word := strings.TrimSpace(out)
	want, _ := ledger.PackAmount(uint256.NewInt(700), uint256.NewInt(300))
	if word != want.Hex() {
		t.Fatalf("pack %s, want %s", word, want.Hex())
	}

	code, out, _ = runCmd(t, "custody", "split", word)
	if code != 0 || field(t, out, "owned") != "700" || field(t, out, "escrow") != "300" || field(t, out, "total") != "1000" {
		t.Fatalf("split: %d %q", code, out)
	}

	over := "0x1" + strings.Repeat("0", 32)
	if code, _, _ := runCmd(t, "custody", "pack", "--owned", over); code != 1 {
		t.Fatalf("expected overflow to fail, got %d", code)
	}
}

func TestJournalVerify_LocalFS(t *testing.T) {
	dir := t.TempDir()
	store, err := localfs.New(dir)
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	j, err := journal.Open(store, "vault")
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	emitter := address.MustParseAddress(hubHex)
	j.Emit(journal.Event{Kind: journal.KindMarshalSet, Emitter: emitter, Attrs: map[string]string{"marshal": ownerHex, "authorized": "true"}})
	j.Emit(journal.Event{Kind: journal.KindFreezeSet, Emitter: emitter, Attrs: map[string]string{"frozen": "false"}})
	if err := j.Err(); err != nil {
		t.Fatalf("journal: %v", err)
	}

	code, out, errOut := runCmd(t, "journal", "verify", "--backend", "localfs", "--set", "dir="+dir, "--chain", "vault", "-v")
	if code != 0 {
		t.Fatalf("verify: %d %s", code, errOut)
	}
	if !strings.Contains(out, "ok: 2 events, head "+j.Head().String()) || !strings.Contains(out, "1\tMarshalSet") {
		t.Fatalf("unexpected output %q", out)
	}

	code, out, _ = runCmd(t, "journal", "verify", "--backend", "localfs", "--set", "dir="+dir, "--head", j.Head().String())
	if code != 0 || !strings.HasPrefix(out, "ok: 2 events") {
		t.Fatalf("verify --head: %d %q", code, out)
	}

	if code, _, _ := runCmd(t, "journal", "verify", "--backend", "localfs", "--set", "dir="+dir); code != 2 {
		t.Fatalf("expected usage error without head or chain")
	}
	if code, _, _ := runCmd(t, "journal", "verify", "--backend", "nope", "--head", j.Head().String()); code != 1 {
		t.Fatalf("expected unknown backend to fail")
	}
}

func TestCall_AgainstRunningService(t *testing.T) {
	governanceSeed := strings.Repeat("0a", keys.SeedSize)
	marshalSeed := strings.Repeat("0b", keys.SeedSize)
	userSeed := strings.Repeat("0c", keys.SeedSize)
	signerFor := func(seedHex string) keys.Signer {
		seed, _ := keys.ParseSeedHex(seedHex)
		s, err := keys.NewSigner(keys.SchemeEd25519, seed)
		if err != nil {
			t.Fatalf("NewSigner: %v", err)
		}
		return s
	}
	gov, marshal, user := signerFor(governanceSeed), signerFor(marshalSeed), signerFor(userSeed)
	token := address.MustParseAddress("0x0000000000000000000000000000000000001111")

	bank := asset.NewBank()
	if err := bank.Mint(token, user.Address(), uint256.NewInt(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	h, err := hub.New(hub.Config{
		Self:          address.MustParseAddress(hubHex),
		Governance:    registry.StaticGovernor(gov.Address()),
		Beacon:        hub.NewBeacon(address.MustParseAddress(beacon), ledger.Implementation{Name: "CreditVault", Version: "1"}),
		ProxyTemplate: []byte{0x60, 0x80},
		Transferer:    bank,
	})
	if err != nil {
		t.Fatalf("hub.New: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	vaultrpc.RegisterVaultServer(srv, vaultrpc.NewServer(h, zerolog.Nop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	target := lis.Addr().String()

	call := func(seedHex string, args ...string) (int, string, string) {
		full := append([]string{"call", args[0], "--target", target}, args[1:]...)
		if seedHex != "" {
			full = append(full, "--seed-hex", seedHex)
		}
		return runCmd(t, full...)
	}

	if code, out, errOut := call(governanceSeed, "set-marshal", "--id", marshal.Address().Hex()); code != 0 || strings.TrimSpace(out) != "ok" {
		t.Fatalf("set-marshal: %d %q %s", code, out, errOut)
	}
	code, out, errOut := call(marshalSeed, "charter", "--owner", ownerHex)
	if code != 0 {
		t.Fatalf("charter: %d %s", code, errOut)
	}
	fund := strings.TrimSpace(out)
	if predicted := h.PredictFund(address.MustParseAddress(ownerHex), address.Hash{}); fund != predicted.Hex() {
		t.Fatalf("chartered %s, predicted %s", fund, predicted.Hex())
	}

	code, out, errOut = call(userSeed, "contribute", "--fund", fund, "--asset", token.Hex(), "--amount", "1000")
	if code != 0 || field(t, out, "owned") != "1000" {
		t.Fatalf("contribute: %d %q %s", code, out, errOut)
	}
	code, out, errOut = call(marshalSeed, "commit", "--fund", fund, "--user", user.Address().Hex(), "--asset", token.Hex(), "--amount", "400")
	if code != 0 || field(t, out, "owned") != "600" || field(t, out, "escrow") != "400" {
		t.Fatalf("commit: %d %q %s", code, out, errOut)
	}
	code, out, errOut = call(marshalSeed, "remit", "--fund", fund, "--user", user.Address().Hex(), "--asset", token.Hex(), "--amount", "300", "--fee", "100")
	if code != 0 || field(t, out, "escrow") != "0" {
		t.Fatalf("remit: %d %q %s", code, out, errOut)
	}
	code, out, errOut = call("", "custody", "--fund", fund, "--user", user.Address().Hex(), "--asset", token.Hex())
	if code != 0 || field(t, out, "owned") != "600" {
		t.Fatalf("custody: %d %q %s", code, out, errOut)
	}
	if got := bank.BalanceOf(token, user.Address()); !got.Eq(uint256.NewInt(300)) {
		t.Fatalf("user holds %s, want 300", got)
	}

	if code, _, _ := call(marshalSeed, "set-freeze", "--frozen=true"); code != 1 {
		t.Fatalf("expected marshal freeze to be rejected, got %d", code)
	}
	if code, _, errOut := call(governanceSeed, "set-freeze", "--frozen=true"); code != 0 {
		t.Fatalf("set-freeze: %d %s", code, errOut)
	}
	if code, out, _ := call("", "frozen"); code != 0 || strings.TrimSpace(out) != "true" {
		t.Fatalf("frozen: %d %q", code, out)
	}
	if code, _, _ := call(marshalSeed, "commit", "--fund", fund, "--user", user.Address().Hex(), "--asset", token.Hex(), "--amount", "1"); code != 1 {
		t.Fatalf("expected commit to fail while frozen, got %d", code)
	}
	code, out, errOut = call(userSeed, "rescind", "--fund", fund, "--asset", token.Hex())
	if code != 0 || field(t, out, "owned") != "0" {
		t.Fatalf("rescind while frozen: %d %q %s", code, out, errOut)
	}

	if code, _, _ := call("", "contribute", "--fund", fund); code != 2 {
		t.Fatalf("expected missing signer to be a usage error, got %d", code)
	}
}
