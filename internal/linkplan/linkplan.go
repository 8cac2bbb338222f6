// Package linkplan builds the ordered list of link directives for the
// CP-SAT binding.
//
// The order of a Plan is significant for single-pass static linkers and is
// never sorted or deduplicated.
package linkplan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goplus/cpsat/internal/env"
	"github.com/goplus/cpsat/internal/toolchain"
)

// Kind classifies a Directive.
type Kind int

const (
	SearchPath Kind = iota
	LinkStatic
	LinkDynamic
)

func (k Kind) String() string {
	switch k {
	case SearchPath:
		return "search"
	case LinkStatic:
		return "static"
	case LinkDynamic:
		return "dylib"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes k by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case SearchPath, LinkStatic, LinkDynamic:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("linkplan: invalid kind %d", int(k))
}

// Directive is one instruction to the linker.
type Directive struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Value string `json:"value" yaml:"value"`
}

func (d Directive) String() string {
	return d.Kind.String() + "=" + d.Value
}

// Plan is an ordered sequence of directives.
type Plan []Directive

// Solver is the dynamic OR-Tools library.
const Solver = "ortools"

// deps are the static archives the solver needs, in link order.
var deps = []string{
	"protobuf",
	"protobuf-lite",
	"absl_str_format_internal",
	"absl_str_format",
	"absl_strings",
	"absl_strings_internal",
}

var errNoShim = errors.New("linkplan: shim directory and name are required")

// New returns the plan for cfg and the compiled shim found in shimDir
// under shimName.
//
// MSVC distributions ship the dependency archives with a "lib" prefix, so
// the prefix is added there. The shim and the solver keep their plain names.
func New(cfg env.BuildConfig, shimDir, shimName string) (Plan, error) {
	if shimDir == "" || shimName == "" {
		return nil, errNoShim
	}
	plan := make(Plan, 0, 4+len(deps))
	plan = append(plan,
		Directive{SearchPath, cfg.LibDir()},
		Directive{SearchPath, shimDir},
		Directive{LinkStatic, shimName},
		Directive{LinkDynamic, Solver},
	)
	for _, dep := range deps {
		if cfg.Target.ABI == toolchain.ABIMSVC {
			dep = "lib" + dep
		}
		plan = append(plan, Directive{LinkStatic, dep})
	}
	return plan, nil
}

// SearchPaths returns the search directories in plan order.
func (p Plan) SearchPaths() []string {
	var dirs []string
	for _, d := range p {
		if d.Kind == SearchPath {
			dirs = append(dirs, d.Value)
		}
	}
	return dirs
}

// Libraries returns the library names in plan order.
func (p Plan) Libraries() []string {
	var libs []string
	for _, d := range p {
		if d.Kind != SearchPath {
			libs = append(libs, d.Value)
		}
	}
	return libs
}

// LDFlags renders p as linker arguments for a gcc-style driver, keeping the
// plan order.
func (p Plan) LDFlags() []string {
	flags := make([]string, 0, len(p))
	for _, d := range p {
		switch d.Kind {
		case SearchPath:
			flags = append(flags, "-L"+d.Value)
		default:
			flags = append(flags, "-l"+d.Value)
		}
	}
	return flags
}

func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, d := range p {
		parts[i] = d.String()
	}
	return strings.Join(parts, " ")
}
