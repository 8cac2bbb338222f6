// Package build runs the CP-SAT binding build: schema compilation, the
// native shim and the link plan.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/cpsat/internal/emit"
	"github.com/goplus/cpsat/internal/env"
	"github.com/goplus/cpsat/internal/linkplan"
	"github.com/goplus/cpsat/internal/lockedfile"
	"github.com/goplus/cpsat/internal/logx"
	"github.com/goplus/cpsat/internal/schema"
	"github.com/goplus/cpsat/internal/toolchain"
	"github.com/goplus/cpsat/pkgs/buildsys"
	"github.com/goplus/cpsat/pkgs/buildsys/cc"
)

// Shim is the compiled adaptation layer.
type Shim struct {
	Dir     string `json:"dir"`
	Name    string `json:"name"`
	Archive string `json:"archive"`
	Cached  bool   `json:"cached"`
}

// Options selects the inputs of a build.
type Options struct {
	ShimSource string
	ShimName   string
	Schema     schema.Options
	// Force recompiles the shim even when the cache matches.
	Force bool
}

// Result is what a successful build produced. Shim is nil in
// documentation mode.
type Result struct {
	Schema *schema.Result
	Shim   *Shim
	Output *emit.Output
}

type Builder struct {
	cfg       env.BuildConfig
	profile   toolchain.Profile
	runner    buildsys.Runner
	protoc    string
	toolCheck func(toolchain.Profile) (toolchain.Profile, error)
}

// NewBuilder returns a Builder for cfg. lookup supplies the CXX and AR
// overrides; nil reads the process environment.
func NewBuilder(cfg env.BuildConfig, lookup env.LookupFunc) *Builder {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Builder{
		cfg:       cfg,
		profile:   toolchain.Select(cfg.Target.Triple, lookup),
		runner:    buildsys.Exec,
		toolCheck: toolchain.Profile.CheckTools,
	}
}

// WithRunner replaces the process runner used for every external tool.
func (b *Builder) WithRunner(r buildsys.Runner) *Builder {
	b.runner = r
	return b
}

// WithProtoc sets the protoc binary.
func (b *Builder) WithProtoc(path string) *Builder {
	b.protoc = path
	return b
}

// SkipToolCheck disables the PATH lookup of the compiler and archiver.
func (b *Builder) SkipToolCheck() *Builder {
	b.toolCheck = nil
	return b
}

func (b *Builder) Config() env.BuildConfig {
	return b.cfg
}

func (b *Builder) Profile() toolchain.Profile {
	return b.profile
}

// Build runs the whole pipeline. The schema step always runs; in
// documentation mode nothing native is compiled and the output carries
// no link directives.
func (b *Builder) Build(ctx context.Context, opts Options) (*Result, error) {
	sr, err := b.Schema(ctx, opts.Schema)
	if err != nil {
		return nil, err
	}
	res := &Result{Schema: sr}

	if b.cfg.DocsOnly {
		logx.L().Info().Str("marker", env.DocsVar).Msg("documentation build, skipping native compilation")
		res.Output = &emit.Output{}
		return res, nil
	}

	b.logRoot()
	shim, err := b.compileShim(ctx, opts)
	if err != nil {
		return nil, newStepError(StepShim, err)
	}
	res.Shim = shim

	out, err := b.output(shim)
	if err != nil {
		return nil, newStepError(StepLink, err)
	}
	res.Output = out
	return res, nil
}

// Schema compiles the protocol schemas.
func (b *Builder) Schema(ctx context.Context, opts schema.Options) (*schema.Result, error) {
	c := &schema.Compiler{Protoc: b.protoc, Run: b.runner}
	logx.L().Info().Strs("files", opts.Files).Str("out", opts.OutDir).Msg("compiling schemas")
	sr, err := c.Compile(ctx, opts)
	if err != nil {
		return nil, newStepError(StepSchema, err)
	}
	logx.L().Debug().Int("messages", len(sr.Messages)).Str("protoc", sr.Version).Msg("schemas compiled")
	return sr, nil
}

// Plan returns the output for an already compiled shim without running
// any tool. It fails with ErrShimNotBuilt if the archive is missing.
func (b *Builder) Plan(name string) (*emit.Output, error) {
	if b.cfg.DocsOnly {
		return &emit.Output{}, nil
	}
	archive := b.archivePath(name)
	if _, err := os.Stat(archive); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrShimNotBuilt, archive)
		}
		return nil, err
	}
	return b.output(&Shim{Dir: b.cfg.OutDir, Name: name, Archive: archive, Cached: true})
}

// Clean removes the shim artifacts of name for the current target and
// returns the removed paths.
func (b *Builder) Clean(name, source string) ([]string, error) {
	dir := b.cfg.OutDir
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	unlock, err := lockedfile.MutexAt(filepath.Join(dir, lockFile)).Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	var removed []string
	for _, path := range []string{
		b.archivePath(name),
		filepath.Join(dir, toolchain.ObjectFile(b.profile.ABI, source)),
	} {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case !errors.Is(err, fs.ErrNotExist):
			return removed, err
		}
	}
	if cache, err := loadCache(dir); err == nil {
		cache.remove(name, b.cfg.Target.Triple)
		if err := saveCache(dir, cache); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (b *Builder) archivePath(name string) string {
	return filepath.Join(b.cfg.OutDir, toolchain.ArchiveFile(b.profile.ABI, name))
}

func (b *Builder) logRoot() {
	l := logx.L().Info().Str("root", b.cfg.Root).Str("target", b.cfg.Target.Triple)
	if b.cfg.RootFromEnv {
		l.Msg("using OR-Tools from " + env.PrefixVar)
		return
	}
	l.Msg(env.PrefixVar + " not set, using the default installation root")
}

func (b *Builder) compileShim(ctx context.Context, opts Options) (*Shim, error) {
	dir := b.cfg.OutDir
	name := opts.ShimName
	triple := b.cfg.Target.Triple
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	unlock, err := lockedfile.MutexAt(filepath.Join(dir, lockFile)).Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	archive := b.archivePath(name)
	cache, err := loadCache(dir)
	if err != nil {
		cache = &shimCache{}
	}
	// An unreadable source is a cache miss; the compiler reports the error.
	fp, fpErr := fingerprint(b.cfg, b.profile, opts.ShimSource)
	if !opts.Force && fpErr == nil {
		if entry, ok := cache.get(name, triple); ok && entry.upToDate(fp, archive) {
			logx.L().Info().Str("archive", archive).Msg("shim is up to date")
			return &Shim{Dir: dir, Name: name, Archive: archive, Cached: true}, nil
		}
	}

	profile := b.profile
	if b.toolCheck != nil {
		if profile, err = b.toolCheck(profile); err != nil {
			return nil, err
		}
	}

	c := cc.New(profile).
		Include(b.cfg.IncludeDir()).
		Flag(profile.StdFlag).
		Runner(b.runner)
	c.Source(opts.ShimSource)
	c.InstallDir(dir)

	logx.L().Info().
		Str("source", opts.ShimSource).
		Str("compiler", profile.Compiler).
		Str("flag", profile.StdFlag).
		Msg("compiling shim")
	err = c.Compile(ctx, name)
	for _, line := range c.Output() {
		logx.L().Debug().Str("tool", profile.Compiler).Msg(line)
	}
	if err != nil {
		return nil, err
	}

	if fpErr == nil {
		cache.set(name, triple, &shimEntry{
			Fingerprint: fp,
			Archive:     c.Archive(),
			BuildTime:   time.Now(),
		})
		if err := saveCache(dir, cache); err != nil {
			return nil, err
		}
	}
	return &Shim{Dir: c.OutputDir(), Name: name, Archive: c.Archive()}, nil
}

func (b *Builder) output(shim *Shim) (*emit.Output, error) {
	plan, err := linkplan.New(b.cfg, shim.Dir, shim.Name)
	if err != nil {
		return nil, err
	}
	logx.L().Debug().
		Strs("search", plan.SearchPaths()).
		Strs("libs", plan.Libraries()).
		Msg("link plan")
	return &emit.Output{
		Triggers:    env.Triggers(),
		Diagnostics: []string{fmt.Sprintf("Building C++ wrapper; %s=%s", env.PrefixVar, b.cfg.Root)},
		CXXFlags: []string{
			toolchain.IncludeFlag(b.profile.ABI, b.cfg.IncludeDir()),
			b.profile.StdFlag,
		},
		Plan: plan,
		ABI:  b.profile.ABI,
	}, nil
}
