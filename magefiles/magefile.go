//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Test

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs Vet and Test.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Install builds cpsat-build into GOBIN.
func Install() error {
	return sh.RunV("go", "install", "./cmd/cpsat-build")
}

// Generate compiles the schemas and the shim and writes the cgo flags file
// for the binding package. ORTOOLS_PREFIX selects the OR-Tools installation.
func Generate() error {
	out := os.Getenv("CPSAT_EMIT_OUTPUT")
	if out == "" {
		out = "cgo_flags.go"
	}
	return sh.RunWithV(map[string]string{"CPSAT_EMIT_OUTPUT": out},
		"go", "run", "./cmd/cpsat-build", "build", "--format", "cgo")
}

// Clean removes the cached shim of the current target.
func Clean() error {
	return sh.RunV("go", "run", "./cmd/cpsat-build", "clean")
}
