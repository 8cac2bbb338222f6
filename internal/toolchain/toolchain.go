package toolchain

import (
	"path/filepath"
	"strings"
)

// ABI is the compiler family a target triple is built with.
// Only two families matter for flag selection, so the set is closed.
type ABI int

const (
	// ABIOther covers GCC, Clang and every other POSIX-style driver.
	ABIOther ABI = iota
	// ABIMSVC is the Windows MSVC toolchain (cl.exe / lib.exe).
	ABIMSVC
)

const (
	msvcMarker  = "msvc"
	cxxStandard = "c++20"
)

func (a ABI) String() string {
	if a == ABIMSVC {
		return "msvc"
	}
	return "other"
}

// ParseABI classifies a target triple such as "x86_64-pc-windows-msvc".
func ParseABI(triple string) ABI {
	if strings.Contains(triple, msvcMarker) {
		return ABIMSVC
	}
	return ABIOther
}

// StdFlag returns the language-standard flag understood by abi's compiler.
func StdFlag(abi ABI) string {
	if abi == ABIMSVC {
		return "/std:" + cxxStandard
	}
	return "-std=" + cxxStandard
}

// IncludeFlag returns the include-path argument for dir.
func IncludeFlag(abi ABI, dir string) string {
	if abi == ABIMSVC {
		return "/I" + dir
	}
	return "-I" + dir
}

// ObjectFile returns the object file name the compiler produces for source.
func ObjectFile(abi ABI, source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if abi == ABIMSVC {
		return base + ".obj"
	}
	return base + ".o"
}

// ArchiveFile returns the platform-conventional static archive name for a
// logical library name: "name.lib" for MSVC, "libname.a" otherwise.
func ArchiveFile(abi ABI, name string) string {
	if abi == ABIMSVC {
		return name + ".lib"
	}
	return "lib" + name + ".a"
}

// Profile is the toolchain selected for one build.
type Profile struct {
	ABI      ABI
	StdFlag  string
	Compiler string
	Archiver string
}

// Select derives the Profile for triple. CXX and AR, when set to a
// non-empty value, replace the default compiler and archiver.
func Select(triple string, lookup func(string) (string, bool)) Profile {
	abi := ParseABI(triple)
	p := Profile{
		ABI:      abi,
		StdFlag:  StdFlag(abi),
		Compiler: "c++",
		Archiver: "ar",
	}
	if abi == ABIMSVC {
		p.Compiler = "cl"
		p.Archiver = "lib"
	}
	if lookup == nil {
		return p
	}
	if v, ok := lookup("CXX"); ok && v != "" {
		p.Compiler = v
	}
	if v, ok := lookup("AR"); ok && v != "" {
		p.Archiver = v
	}
	return p
}

// CompileArgs returns the arguments that compile source into obj.
func (p Profile) CompileArgs(source, obj string, includes, flags []string) []string {
	var args []string
	if p.ABI == ABIMSVC {
		args = append(args, "/nologo", "/c", "/EHsc")
		for _, dir := range includes {
			args = append(args, IncludeFlag(p.ABI, dir))
		}
		args = append(args, flags...)
		return append(args, "/Fo"+obj, source)
	}
	args = append(args, "-c", "-fPIC")
	for _, dir := range includes {
		args = append(args, IncludeFlag(p.ABI, dir))
	}
	args = append(args, flags...)
	return append(args, "-o", obj, source)
}

// ArchiveArgs returns the arguments that pack objs into archive.
func (p Profile) ArchiveArgs(archive string, objs []string) []string {
	if p.ABI == ABIMSVC {
		return append([]string{"/nologo", "/OUT:" + archive}, objs...)
	}
	return append([]string{"crs", archive}, objs...)
}
