package cc

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/goplus/cpsat/internal/toolchain"
	"github.com/goplus/cpsat/pkgs/buildsys"
)

// CC compiles C++ sources into a static archive with chainable configuration.
type CC struct {
	profile    toolchain.Profile
	sources    []string
	includes   []string
	flags      []string
	installDir string
	name       string
	env        map[string]string
	runner     buildsys.Runner

	objects []string
	archive string
	output  []string
}

var _ buildsys.BuildSystem = (*CC)(nil)

// New creates a compiler driver for profile.
func New(profile toolchain.Profile) *CC {
	return &CC{
		profile: profile,
		env:     map[string]string{},
		runner:  buildsys.Exec,
	}
}

// Source adds a translation unit.
func (c *CC) Source(file string) {
	c.sources = append(c.sources, file)
}

// InstallDir sets where objects and the archive are written.
func (c *CC) InstallDir(dir string) {
	c.installDir = dir
}

func (c *CC) Include(dir string) *CC {
	c.includes = append(c.includes, dir)
	return c
}

func (c *CC) Flag(flag string) *CC {
	c.flags = append(c.flags, flag)
	return c
}

// Name sets the logical library name of the archive.
func (c *CC) Name(name string) *CC {
	c.name = name
	return c
}

// Runner replaces the process runner, mainly for tests.
func (c *CC) Runner(r buildsys.Runner) *CC {
	c.runner = r
	return c
}

func (c *CC) Env(key, value string) {
	if c.env == nil {
		c.env = map[string]string{}
	}
	c.env[key] = value
}

// Configure prepares the output directory.
func (c *CC) Configure(_ context.Context, _ ...string) error {
	if c.installDir == "" {
		return errors.New("cc: install dir is not set")
	}
	if len(c.sources) == 0 {
		return errors.New("cc: no sources")
	}
	if c.name == "" {
		return errors.New("cc: library name is not set")
	}
	return os.MkdirAll(c.installDir, 0o755)
}

// Build compiles every source to an object file. Extra args are appended
// after the configured flags.
func (c *CC) Build(ctx context.Context, args ...string) error {
	c.objects = c.objects[:0]
	flags := append(append([]string{}, c.flags...), args...)
	for _, src := range c.sources {
		obj := filepath.Join(c.installDir, toolchain.ObjectFile(c.profile.ABI, src))
		lines, err := buildsys.Run(ctx, c.runner, c.profile.Compiler,
			c.profile.CompileArgs(src, obj, c.includes, flags), c.env)
		c.output = append(c.output, lines...)
		if err != nil {
			return err
		}
		c.objects = append(c.objects, obj)
	}
	return nil
}

// Install packs the compiled objects into the static archive.
func (c *CC) Install(ctx context.Context, _ ...string) error {
	archive := filepath.Join(c.installDir, toolchain.ArchiveFile(c.profile.ABI, c.name))
	// ar appends to an existing archive; start from an empty one.
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return err
	}
	lines, err := buildsys.Run(ctx, c.runner, c.profile.Archiver,
		c.profile.ArchiveArgs(archive, c.objects), c.env)
	c.output = append(c.output, lines...)
	if err != nil {
		return err
	}
	c.archive = archive
	return nil
}

// Compile runs Configure, Build and Install in order, producing the archive
// for the logical library name.
func (c *CC) Compile(ctx context.Context, name string) error {
	c.Name(name)
	if err := c.Configure(ctx); err != nil {
		return err
	}
	if err := c.Build(ctx); err != nil {
		return err
	}
	return c.Install(ctx)
}

// OutputDir returns the directory holding the archive.
func (c *CC) OutputDir() string {
	return c.installDir
}

// Archive returns the archive path after a successful Install.
func (c *CC) Archive() string {
	return c.archive
}

// Output returns everything the tools printed so far.
func (c *CC) Output() []string {
	return c.output
}
