package build

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goplus/cpsat/internal/env"
	"github.com/goplus/cpsat/internal/toolchain"
)

func TestSaveAndLoadCache(t *testing.T) {
	tmpDir := t.TempDir()

	now := time.Now().Truncate(time.Second)
	cache := &shimCache{}
	cache.set("cp_sat_wrapper", "x86_64-unknown-linux-gnu", &shimEntry{
		Fingerprint: "abc",
		Archive:     "/tmp/out/libcp_sat_wrapper.a",
		BuildTime:   now,
	})

	if err := saveCache(tmpDir, cache); err != nil {
		t.Fatalf("saveCache failed: %v", err)
	}

	loaded, err := loadCache(tmpDir)
	if err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}

	entry, ok := loaded.get("cp_sat_wrapper", "x86_64-unknown-linux-gnu")
	if !ok {
		t.Fatal("entry not found after reload")
	}
	if entry.Fingerprint != "abc" {
		t.Errorf("Fingerprint mismatch: got %q, want %q", entry.Fingerprint, "abc")
	}
	if !entry.BuildTime.Truncate(time.Second).Equal(now) {
		t.Errorf("BuildTime mismatch: got %v, want %v", entry.BuildTime, now)
	}
	if _, ok := loaded.get("cp_sat_wrapper", "x86_64-pc-windows-msvc"); ok {
		t.Error("entries must be keyed by target")
	}
}

func TestLoadCache_NotExist(t *testing.T) {
	if _, err := loadCache(t.TempDir()); err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
}

func TestLoadCache_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, cacheFile), []byte("invalid json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := loadCache(tmpDir); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestCacheRemove(t *testing.T) {
	cache := &shimCache{}
	cache.remove("x", "y")
	cache.set("x", "y", &shimEntry{})
	cache.remove("x", "y")
	if _, ok := cache.get("x", "y"); ok {
		t.Error("entry still present after remove")
	}
}

func TestFingerprint(t *testing.T) {
	src := filepath.Join(t.TempDir(), "shim.cpp")
	if err := os.WriteFile(src, []byte("int x;"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := env.BuildConfig{Root: "/opt/ortools"}
	p := toolchain.Select("x86_64-unknown-linux-gnu", nil)

	a, err := fingerprint(cfg, p, src)
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}
	if b, _ := fingerprint(cfg, p, src); a != b {
		t.Error("fingerprint is not deterministic")
	}

	other := cfg
	other.Root = "/usr/local/ortools"
	if b, _ := fingerprint(other, p, src); a == b {
		t.Error("root change must change the fingerprint")
	}
	if b, _ := fingerprint(cfg, toolchain.Select("x86_64-pc-windows-msvc", nil), src); a == b {
		t.Error("toolchain change must change the fingerprint")
	}

	if err := os.WriteFile(src, []byte("int y;"), 0644); err != nil {
		t.Fatal(err)
	}
	if b, _ := fingerprint(cfg, p, src); a == b {
		t.Error("source change must change the fingerprint")
	}

	if _, err := fingerprint(cfg, p, filepath.Join(t.TempDir(), "missing.cpp")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestShimEntryUpToDate(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "libcp_sat_wrapper.a")
	entry := &shimEntry{Fingerprint: "abc", Archive: archive}

	if entry.upToDate("abc", archive) {
		t.Error("missing archive must not be up to date")
	}
	if err := os.WriteFile(archive, []byte("!<arch>"), 0644); err != nil {
		t.Fatal(err)
	}
	if !entry.upToDate("abc", archive) {
		t.Error("expected entry to be up to date")
	}
	if entry.upToDate("def", archive) {
		t.Error("fingerprint change must miss")
	}

	moved := filepath.Join(t.TempDir(), "libcp_sat_wrapper.a")
	if err := os.WriteFile(moved, []byte("!<arch>"), 0644); err != nil {
		t.Fatal(err)
	}
	if entry.upToDate("abc", moved) {
		t.Error("archive recorded at another path must miss")
	}
}
