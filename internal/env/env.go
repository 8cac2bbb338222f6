package env

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/goplus/cpsat/internal/toolchain"
)

// Environment variables read while resolving a build.
const (
	PrefixVar = "ORTOOLS_PREFIX"
	DocsVar   = "CPSAT_DOCS_BUILD"
	TargetVar = "TARGET"
	OutDirVar = "OUT_DIR"
)

// Installation roots used when PrefixVar is absent.
const (
	DefaultWindowsRoot = `E:\gicp\opt\ortools`
	DefaultRoot        = "/opt/ortools"
)

// LookupFunc has the semantics of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Host identifies the machine running the build.
type Host struct {
	OS   string
	Arch string
}

// CurrentHost returns the host this process runs on.
func CurrentHost() Host {
	return Host{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// Windows reports whether h belongs to the Windows family.
func (h Host) Windows() bool {
	return h.OS == "windows"
}

// Triple returns the conventional target triple for h. Windows hosts get
// the windows-gnu triple since cgo builds with mingw; an MSVC target must be
// requested through TARGET.
func (h Host) Triple() string {
	arch := h.Arch
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	}
	switch h.OS {
	case "windows":
		return arch + "-pc-windows-gnu"
	case "darwin":
		return arch + "-apple-darwin"
	case "linux":
		return arch + "-unknown-linux-gnu"
	default:
		return arch + "-unknown-" + h.OS
	}
}

// Target is the platform the binding is built for.
type Target struct {
	Triple string
	ABI    toolchain.ABI
}

// BuildConfig is resolved once per invocation and is not modified afterwards.
type BuildConfig struct {
	// Root is the OR-Tools installation root.
	Root string
	// RootFromEnv is true when Root came from PrefixVar.
	RootFromEnv bool
	Target      Target
	// DocsOnly skips native compilation and linking.
	DocsOnly bool
	// OutDir receives the compiled shim.
	OutDir string
}

// IncludeDir is the header directory under Root.
func (c BuildConfig) IncludeDir() string {
	return filepath.Join(c.Root, "include")
}

// LibDir is the library directory under Root.
func (c BuildConfig) LibDir() string {
	return filepath.Join(c.Root, "lib")
}

// Resolve builds the BuildConfig from lookup and host. It never fails:
// a missing override only selects the default.
//
// PrefixVar is tested for presence, so an empty value is used as the root
// verbatim rather than falling back to the default.
func Resolve(lookup LookupFunc, host Host) BuildConfig {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := BuildConfig{}

	if root, ok := lookup(PrefixVar); ok {
		cfg.Root = root
		cfg.RootFromEnv = true
	} else if host.Windows() {
		cfg.Root = DefaultWindowsRoot
	} else {
		cfg.Root = DefaultRoot
	}

	_, cfg.DocsOnly = lookup(DocsVar)

	triple, ok := lookup(TargetVar)
	if !ok || triple == "" {
		triple = host.Triple()
	}
	cfg.Target = Target{Triple: triple, ABI: toolchain.ParseABI(triple)}

	if dir, ok := lookup(OutDirVar); ok && dir != "" {
		cfg.OutDir = dir
	} else {
		cfg.OutDir = ShimDir(triple)
	}
	return cfg
}

// Triggers lists the variables whose change must invalidate cached artifacts.
func Triggers() []string {
	return []string{PrefixVar}
}

// WorkDir is the per-user cache directory of cpsat-build.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, "cpsat"), nil
}

// ShimDir is the default shim output directory for triple.
func ShimDir(triple string) string {
	dir, err := WorkDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), "cpsat")
	}
	return filepath.Join(dir, "shim", triple)
}
