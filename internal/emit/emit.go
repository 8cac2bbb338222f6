// Package emit renders build results for the surrounding build system.
package emit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goplus/cpsat/internal/linkplan"
	"github.com/goplus/cpsat/internal/toolchain"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output is everything handed to the consumer of a build.
type Output struct {
	Triggers    []string      `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Diagnostics []string      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	CXXFlags    []string      `json:"cxxflags,omitempty" yaml:"cxxflags,omitempty"`
	Plan        linkplan.Plan `json:"plan,omitempty" yaml:"plan,omitempty"`

	// ABI is the compiler family the flags were chosen for.
	ABI toolchain.ABI `json:"-" yaml:"-"`
}

// ErrMSVCFlags is returned by the cgo and env formats for MSVC output.
// cgo always drives a GCC-style compiler, mingw on Windows.
var ErrMSVCFlags = errors.New("MSVC flags cannot be used by cgo; set TARGET to a windows-gnu triple")

// Format selects how an Output is rendered.
type Format string

const (
	// Cargo is the build-script line protocol. Dependency archives carry
	// the lib prefix only on MSVC targets, so other targets get
	// static=protobuf rather than static=libprotobuf.
	Cargo Format = "cargo"

	// Cgo is a Go file holding #cgo directives.
	Cgo Format = "cgo"

	// Env is CGO_CXXFLAGS and CGO_LDFLAGS assignments for a POSIX shell.
	Env Format = "env"

	JSON  Format = "json"
	YAML  Format = "yaml"
	Table Format = "table"
)

// Formats lists every supported format.
var Formats = []Format{Cargo, Cgo, Env, JSON, YAML, Table}

// ParseFormat validates s.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, strings.Join(names, ", "))
}

// Options tune individual formats.
type Options struct {
	// Package is the package clause of the cgo file.
	Package string
}

// Write renders out in format to w.
func Write(w io.Writer, format Format, out *Output, opts Options) error {
	switch format {
	case Cargo:
		return writeCargo(w, out)
	case Cgo:
		return writeCgo(w, out, opts)
	case Env:
		return writeEnv(w, out)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case Table:
		return writeTable(w, out)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeCargo(w io.Writer, out *Output) error {
	var b strings.Builder
	for _, v := range out.Triggers {
		fmt.Fprintf(&b, "cargo:rerun-if-env-changed=%s\n", v)
	}
	for _, d := range out.Diagnostics {
		fmt.Fprintf(&b, "cargo:warning=%s\n", d)
	}
	for _, d := range out.Plan {
		switch d.Kind {
		case linkplan.SearchPath:
			fmt.Fprintf(&b, "cargo:rustc-link-search=native=%s\n", d.Value)
		case linkplan.LinkStatic:
			fmt.Fprintf(&b, "cargo:rustc-link-lib=static=%s\n", d.Value)
		case linkplan.LinkDynamic:
			fmt.Fprintf(&b, "cargo:rustc-link-lib=dylib=%s\n", d.Value)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CheckABI reports whether format can carry flags chosen for abi.
func CheckABI(format Format, abi toolchain.ABI) error {
	if abi == toolchain.ABIMSVC && (format == Cgo || format == Env) {
		return fmt.Errorf("%s output: %w", format, ErrMSVCFlags)
	}
	return nil
}

func writeCgo(w io.Writer, out *Output, opts Options) error {
	if err := CheckABI(Cgo, out.ABI); err != nil {
		return err
	}
	pkg := opts.Package
	if pkg == "" {
		pkg = "cpsat"
	}
	var b strings.Builder
	b.WriteString("// Code generated by cpsat-build. DO NOT EDIT.\n\n")
	b.WriteString("//go:build cgo\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	for _, v := range out.Triggers {
		fmt.Fprintf(&b, "// Regenerate when %s changes.\n", v)
	}
	for _, d := range out.Diagnostics {
		fmt.Fprintf(&b, "// %s\n", d)
	}
	if len(out.Triggers)+len(out.Diagnostics) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("/*\n")
	if len(out.CXXFlags) > 0 {
		fmt.Fprintf(&b, "#cgo CXXFLAGS: %s\n", cgoJoin(out.CXXFlags))
	}
	if len(out.Plan) > 0 {
		fmt.Fprintf(&b, "#cgo LDFLAGS: %s\n", cgoJoin(out.Plan.LDFlags()))
	}
	b.WriteString("*/\n")
	b.WriteString("import \"C\"\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// cgoJoin joins args for a #cgo line. cgo splits the line like a shell
// and rejects backslashes, so separators are turned into slashes.
func cgoJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		a = strings.ReplaceAll(a, `\`, "/")
		if strings.ContainsAny(a, " \t'\"") {
			a = strconv.Quote(a)
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

func writeEnv(w io.Writer, out *Output) error {
	if err := CheckABI(Env, out.ABI); err != nil {
		return err
	}
	var b strings.Builder
	if len(out.CXXFlags) > 0 {
		fmt.Fprintf(&b, "CGO_CXXFLAGS=%s\n", shellQuote(envJoin(out.CXXFlags)))
	}
	if len(out.Plan) > 0 {
		fmt.Fprintf(&b, "CGO_LDFLAGS=%s\n", shellQuote(envJoin(out.Plan.LDFlags())))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// envJoin joins args the way the go command splits CGO_* variables: a
// field may be wrapped in single or double quotes and nothing is escaped.
func envJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		switch {
		case !strings.ContainsAny(a, " \t\n\r'\""):
		case !strings.Contains(a, `"`):
			a = `"` + a + `"`
		default:
			a = "'" + a + "'"
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if !strings.ContainsAny(s, " \t'\"$\\") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func writeTable(w io.Writer, out *Output) error {
	if len(out.Plan) == 0 {
		_, err := fmt.Fprintln(w, "(no link directives)")
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "KIND", "VALUE"})
	for i, d := range out.Plan {
		t.AppendRow(table.Row{i + 1, d.Kind.String(), d.Value})
	}
	t.Render()
	for _, d := range out.Diagnostics {
		if _, err := fmt.Fprintln(w, d); err != nil {
			return err
		}
	}
	return nil
}
