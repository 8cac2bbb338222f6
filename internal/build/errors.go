package build

import (
	"errors"

	"github.com/goplus/cpsat/internal/toolchain"
	"github.com/goplus/cpsat/pkgs/buildsys"
)

// Build steps reported in a StepError.
const (
	StepSchema = "schema"
	StepShim   = "shim"
	StepLink   = "link"
)

var (
	// ErrShimNotBuilt is returned by Plan when no archive exists for the target.
	ErrShimNotBuilt = errors.New("shim has not been built for this target")
	// ErrToolMissing is returned when the compiler or archiver is not on PATH.
	ErrToolMissing = toolchain.ErrToolMissing
)

// StepError is a fatal failure of one build step. Output holds the raw
// output of the failing tool, if there was one.
type StepError struct {
	Step   string
	Err    error
	Output []string
}

func newStepError(step string, err error) *StepError {
	e := &StepError{Step: step, Err: err}
	var te *buildsys.ToolError
	if errors.As(err, &te) {
		e.Output = te.Output
	}
	return e
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}
