package buildsys

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Runner executes bin with args and returns its combined output.
// env entries override the process environment.
type Runner func(ctx context.Context, bin string, args []string, env map[string]string) ([]byte, error)

// Exec is the default Runner. The child is killed when ctx is done.
func Exec(ctx context.Context, bin string, args []string, env map[string]string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	if len(env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), env)
	}
	return cmd.CombinedOutput()
}

// ToolError is a failed tool invocation together with the tool's own output.
type ToolError struct {
	Tool   string
	Args   []string
	Output []string
	Err    error
}

func (e *ToolError) Error() string {
	prefix := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if e.Err == nil {
		prefix = e.Tool + " failed"
	}
	if out := strings.TrimSpace(strings.Join(e.Output, "\n")); out != "" {
		return prefix + "\n\nBuild output:\n" + out
	}
	return prefix
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Run invokes bin through r and converts a failure into a *ToolError.
func Run(ctx context.Context, r Runner, bin string, args []string, env map[string]string) ([]string, error) {
	if r == nil {
		r = Exec
	}
	out, err := r(ctx, bin, args, env)
	lines := SplitLines(out)
	if err != nil {
		return lines, &ToolError{Tool: bin, Args: args, Output: lines, Err: err}
	}
	return lines, nil
}

// SplitLines splits tool output into lines, dropping a trailing empty line.
func SplitLines(out []byte) []string {
	s := strings.TrimRight(string(out), "\r\n")
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// MergeEnv overlays override onto base and returns a sorted KEY=VALUE list.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
