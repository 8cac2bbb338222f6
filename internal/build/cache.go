package build

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/cpsat/internal/env"
	"github.com/goplus/cpsat/internal/toolchain"
)

// Output directory layout:
//
//	outDir/
//	  .lock                     # held while compiling
//	  .cache.json               # shim cache: maps "name-triple" to shimEntry
//	  cp_sat_wrapper.o          # cp_sat_wrapper.obj on MSVC
//	  libcp_sat_wrapper.a       # cp_sat_wrapper.lib on MSVC
const (
	cacheFile = ".cache.json"
	lockFile  = ".lock"
)

// shimEntry records one successful shim compilation.
type shimEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Archive     string    `json:"archive"`
	BuildTime   time.Time `json:"build_time"`
}

// shimCache maps "name-triple" keys to their entries.
type shimCache struct {
	Cache map[string]*shimEntry `json:"cache"`
}

// upToDate reports whether the entry was recorded for fp and archive and the
// archive is still on disk. A shim whose output directory moved misses.
func (e *shimEntry) upToDate(fp, archive string) bool {
	if e.Fingerprint != fp || e.Archive != archive {
		return false
	}
	_, err := os.Stat(archive)
	return err == nil
}

func cacheKey(name, triple string) string {
	return name + "-" + triple
}

func (c *shimCache) get(name, triple string) (*shimEntry, bool) {
	entry, ok := c.Cache[cacheKey(name, triple)]
	return entry, ok
}

func (c *shimCache) set(name, triple string, entry *shimEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*shimEntry)
	}
	c.Cache[cacheKey(name, triple)] = entry
}

func (c *shimCache) remove(name, triple string) {
	delete(c.Cache, cacheKey(name, triple))
}

// loadCache reads the cache file from dir.
func loadCache(dir string) (*shimCache, error) {
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if err != nil {
		return nil, err
	}
	var cache shimCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

// saveCache writes the cache file to dir.
func saveCache(dir string, cache *shimCache) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cacheFile), data, 0o644)
}

// fingerprint identifies the inputs of a shim compilation: the installation
// root, the toolchain and the source contents.
func fingerprint(cfg env.BuildConfig, p toolchain.Profile, source string) (string, error) {
	src, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	fmt.Fprintf(h, "root=%s\nflag=%s\ncompiler=%s\narchiver=%s\n", cfg.Root, p.StdFlag, p.Compiler, p.Archiver)
	h.Write(src)
	return hex.EncodeToString(h.Sum(nil)), nil
}
