package crypto

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateKeyPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node_key.hex")

	created, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	loaded, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("reload key: %v", err)
	}
	if created.PubKey().Address().String() != loaded.PubKey().Address().String() {
		t.Fatal("reloaded key does not match the created key")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat keystore: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("keystore permissions %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadOrCreateKeyRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node_key.hex")
	if err := os.WriteFile(path, []byte("zz-not-hex"), 0o600); err != nil {
		t.Fatalf("write corrupt keystore: %v", err)
	}
	if _, err := LoadOrCreateKey(path); err == nil {
		t.Fatal("expected error for corrupt keystore")
	}
}
