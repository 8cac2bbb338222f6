package toolchain

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrToolMissing is returned by CheckTools when a required tool is not on PATH.
var ErrToolMissing = errors.New("required tool not found")

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// ToolRequirement describes a build tool dependency.
type ToolRequirement struct {
	// Name is the primary binary name.
	Name string
	// Alternatives satisfy the requirement when Name is missing.
	Alternatives []string
	// Optional tools are reported but never fail the check.
	Optional bool
	// Purpose is shown in error messages.
	Purpose string
}

// Requirements lists the tools needed to compile and archive with p.
// Alternatives are only offered for the default driver names; an explicit
// CXX or AR override has to be present as given.
func (p Profile) Requirements() []ToolRequirement {
	compiler := ToolRequirement{Name: p.Compiler, Purpose: "C++ compiler"}
	archiver := ToolRequirement{Name: p.Archiver, Purpose: "static archiver"}
	switch {
	case p.ABI == ABIOther && p.Compiler == "c++":
		compiler.Alternatives = []string{"g++", "clang++"}
	case p.ABI == ABIMSVC && p.Compiler == "cl":
		compiler.Alternatives = []string{"clang-cl"}
	}
	switch {
	case p.ABI == ABIOther && p.Archiver == "ar":
		archiver.Alternatives = []string{"llvm-ar", "gcc-ar"}
	case p.ABI == ABIMSVC && p.Archiver == "lib":
		archiver.Alternatives = []string{"llvm-lib"}
	}
	return []ToolRequirement{compiler, archiver}
}

// Resolve returns the first available binary for req, or "" if none is found.
func (req ToolRequirement) Resolve() string {
	if _, err := lookPath(req.Name); err == nil {
		return req.Name
	}
	for _, alt := range req.Alternatives {
		if _, err := lookPath(alt); err == nil {
			return alt
		}
	}
	return ""
}

// CheckTools verifies every required tool is available and returns p with
// the compiler and archiver replaced by whichever alternative was found.
func (p Profile) CheckTools() (Profile, error) {
	reqs := p.Requirements()
	var missing []string
	found := make([]string, len(reqs))
	for i, req := range reqs {
		found[i] = req.Resolve()
		if found[i] == "" && !req.Optional {
			missing = append(missing, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
		}
	}
	if len(missing) > 0 {
		return p, fmt.Errorf("%w: %s", ErrToolMissing, strings.Join(missing, ", "))
	}
	p.Compiler = found[0]
	p.Archiver = found[1]
	return p, nil
}
