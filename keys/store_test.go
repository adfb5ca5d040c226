package keys

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestKeyStore_RootAndRoles(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenKeyStore: %v", err)
	}
	root := testRoot()
	path, err := ks.InitRoot("ops", root, false)
	if err != nil {
		t.Fatalf("InitRoot: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("root seed file: %v %v", info, err)
	}
	if _, err := ks.InitRoot("ops", root, false); err == nil {
		t.Fatalf("expected existing root to be kept")
	}

	seed, rolePath, err := ks.DeriveRole("ops", "marshal", false)
	if err != nil {
		t.Fatalf("DeriveRole: %v", err)
	}
	want, _ := DeriveRoleSeed(root, "marshal")
	if !bytes.Equal(seed, want) {
		t.Fatalf("stored role seed differs from derivation")
	}
	if filepath.Base(rolePath) != "marshal.seed" {
		t.Fatalf("unexpected role path %s", rolePath)
	}
	if _, _, err := ks.DeriveRole("ops", "governance", false); err != nil {
		t.Fatalf("DeriveRole: %v", err)
	}

	got, err := ks.LoadSeed("", "ops", "marshal", "")
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("LoadSeed by name: %v", err)
	}
	got, err = ks.LoadSeed("", "", "", rolePath)
	if err != nil || !bytes.Equal(got, want) {
		t.Fatalf("LoadSeed by file: %v", err)
	}
	if _, err := ks.LoadSeed("", "", "", ""); err == nil {
		t.Fatalf("expected error with no signer")
	}

	signer, err := ks.Signer(SchemeEd25519, "", "ops", "marshal", "")
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	direct, _ := NewSigner(SchemeEd25519, want)
	if signer.Address() != direct.Address() {
		t.Fatalf("store signer differs from direct signer")
	}

	entries, err := ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "ops" || len(entries[0].Roles) != 2 || entries[0].Roles[0] != "governance" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestKeyStore_RejectsBadNames(t *testing.T) {
	ks := &KeyStore{Directory: t.TempDir()}
	if _, err := ks.InitRoot("../escape", testRoot(), false); err == nil {
		t.Fatalf("expected path-like name to be rejected")
	}
	if _, err := ks.Seed("ops", "a/b"); err == nil {
		t.Fatalf("expected path-like role to be rejected")
	}
	if _, err := ParseSeedHex("0x1234"); err == nil {
		t.Fatalf("expected short hex seed to be rejected")
	}
}

func TestKeyStore_ListMissingDirectory(t *testing.T) {
	ks := &KeyStore{Directory: filepath.Join(t.TempDir(), "absent")}
	entries, err := ks.List()
	if err != nil || entries != nil {
		t.Fatalf("expected empty list, got %v %v", entries, err)
	}
}
