package env

import (
	"path/filepath"
	"testing"

	"github.com/goplus/cpsat/internal/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	linux   = Host{OS: "linux", Arch: "amd64"}
	darwin  = Host{OS: "darwin", Arch: "arm64"}
	windows = Host{OS: "windows", Arch: "amd64"}
)

func lookupMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestResolveDefaultRoot(t *testing.T) {
	tests := []struct {
		host Host
		want string
	}{
		{linux, DefaultRoot},
		{darwin, DefaultRoot},
		{Host{OS: "freebsd", Arch: "amd64"}, DefaultRoot},
		{windows, DefaultWindowsRoot},
	}
	for _, tt := range tests {
		t.Run(tt.host.OS, func(t *testing.T) {
			cfg := Resolve(lookupMap(nil), tt.host)
			assert.Equal(t, tt.want, cfg.Root)
			assert.False(t, cfg.RootFromEnv)
		})
	}
}

func TestResolveOverrideRoot(t *testing.T) {
	for _, host := range []Host{linux, windows} {
		for _, root := range []string{"/opt/ortools", "/home/me/ortools-9.12", `D:\sdk\ortools`} {
			cfg := Resolve(lookupMap(map[string]string{PrefixVar: root}), host)
			assert.Equal(t, root, cfg.Root)
			assert.True(t, cfg.RootFromEnv)

			again := Resolve(lookupMap(map[string]string{PrefixVar: root}), host)
			assert.Equal(t, cfg, again)
		}
	}
}

func TestResolveEmptyOverrideIsPresent(t *testing.T) {
	cfg := Resolve(lookupMap(map[string]string{PrefixVar: ""}), linux)
	assert.Equal(t, "", cfg.Root)
	assert.True(t, cfg.RootFromEnv)
	assert.Equal(t, "lib", cfg.LibDir())
	assert.Equal(t, "include", cfg.IncludeDir())
}

func TestResolveDocsMarker(t *testing.T) {
	for _, v := range []string{"", "0", "1", "false"} {
		cfg := Resolve(lookupMap(map[string]string{DocsVar: v}), linux)
		assert.True(t, cfg.DocsOnly, "value %q", v)
	}
	assert.False(t, Resolve(lookupMap(nil), linux).DocsOnly)
}

func TestResolveTarget(t *testing.T) {
	cfg := Resolve(lookupMap(nil), linux)
	assert.Equal(t, Target{Triple: "x86_64-unknown-linux-gnu", ABI: toolchain.ABIOther}, cfg.Target)

	cfg = Resolve(lookupMap(nil), windows)
	assert.Equal(t, Target{Triple: "x86_64-pc-windows-gnu", ABI: toolchain.ABIOther}, cfg.Target,
		"windows hosts default to the mingw toolchain cgo uses")
	assert.Equal(t, DefaultWindowsRoot, cfg.Root)

	cfg = Resolve(lookupMap(map[string]string{TargetVar: "x86_64-pc-windows-msvc"}), windows)
	assert.Equal(t, Target{Triple: "x86_64-pc-windows-msvc", ABI: toolchain.ABIMSVC}, cfg.Target)

	cfg = Resolve(lookupMap(map[string]string{TargetVar: "aarch64-pc-windows-msvc"}), linux)
	assert.Equal(t, toolchain.ABIMSVC, cfg.Target.ABI)
	assert.Equal(t, DefaultRoot, cfg.Root, "default root follows the host, not the target")
}

func TestResolveOutDir(t *testing.T) {
	out := t.TempDir()
	cfg := Resolve(lookupMap(map[string]string{OutDirVar: out}), linux)
	assert.Equal(t, out, cfg.OutDir)

	cfg = Resolve(lookupMap(nil), linux)
	assert.Equal(t, ShimDir("x86_64-unknown-linux-gnu"), cfg.OutDir)
	assert.Equal(t, "x86_64-unknown-linux-gnu", filepath.Base(cfg.OutDir))
}

func TestOptOrtoolsScenario(t *testing.T) {
	cfg := Resolve(lookupMap(map[string]string{PrefixVar: "/opt/ortools"}), linux)
	require.Equal(t, "/opt/ortools", cfg.Root)
	assert.Equal(t, filepath.Join("/opt/ortools", "lib"), cfg.LibDir())
	assert.Equal(t, filepath.Join("/opt/ortools", "include"), cfg.IncludeDir())
}

func TestHostTriple(t *testing.T) {
	tests := []struct {
		host Host
		want string
	}{
		{linux, "x86_64-unknown-linux-gnu"},
		{darwin, "aarch64-apple-darwin"},
		{windows, "x86_64-pc-windows-gnu"},
		{Host{OS: "windows", Arch: "386"}, "i686-pc-windows-gnu"},
		{Host{OS: "freebsd", Arch: "riscv64"}, "riscv64-unknown-freebsd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.host.Triple())
	}
}

func TestTriggers(t *testing.T) {
	assert.Equal(t, []string{PrefixVar}, Triggers())
}

func TestWorkDirWithCustomCache(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", tempDir)

	dir, err := WorkDir()
	require.NoError(t, err)
	assert.Equal(t, "cpsat", filepath.Base(dir))
}
