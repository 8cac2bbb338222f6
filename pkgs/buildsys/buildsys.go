// Package buildsys defines the lifecycle shared by native build drivers and
// the process plumbing they use to run external tools.
package buildsys

import "context"

// BuildSystem is a native build driver such as the C++ compiler driver in
// package cc. Tools run under ctx and are killed when it is done.
type BuildSystem interface {
	// Source adds an input file.
	Source(file string)
	// InstallDir sets where artifacts are written.
	InstallDir(dir string)
	// Env sets a variable for every tool the driver runs.
	Env(key, val string)

	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error

	OutputDir() string
}
