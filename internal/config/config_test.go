package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("format", "cgo", "")
	fs.StringP("output", "o", "-", "")
	fs.String("log-level", "info", "")
	fs.String("protoc", "", "")
	fs.Bool("force", false, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "src/cp_sat_wrapper.cpp", cfg.Shim.Source)
	assert.Equal(t, "cp_sat_wrapper", cfg.Shim.Name)
	assert.Equal(t, []string{"src/cp_model.proto", "src/sat_parameters.proto"}, cfg.Schema.Files)
	assert.Equal(t, "src", cfg.Schema.Include)
	assert.Equal(t, "cpmodel", cfg.Schema.Out)
	assert.Equal(t, "protoc", cfg.Schema.Protoc)
	assert.Equal(t, "cgo", cfg.Emit.Format)
	assert.Equal(t, "-", cfg.Emit.Output)
	assert.Equal(t, "cpsat", cfg.Emit.CgoPackage)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.File)
}

func TestLoadFindsFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, "cpsat-build.yaml", "shim:\n  name: wrapper\n")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "wrapper", cfg.Shim.Name)
	assert.Equal(t, "cpsat-build.yaml", cfg.File)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeFile(t, dir, "custom.yaml", `
emit:
  format: json
  output: from-file.txt
log:
  level: debug
schema:
  go_package: example.com/from/file
`)
	t.Setenv("CPSAT_EMIT_FORMAT", "yaml")
	t.Setenv("CPSAT_SCHEMA_GO_PACKAGE", "example.com/from/env")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--format=table", "--force"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "table", cfg.Emit.Format, "flag beats env and file")
	assert.Equal(t, "example.com/from/env", cfg.Schema.GoPackage, "env beats file")
	assert.Equal(t, "from-file.txt", cfg.Emit.Output, "unchanged flag keeps file value")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, path, cfg.File)
}

func TestLoadProtoc(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, "cpsat-build.yaml", "schema:\n  protoc: /opt/protobuf/bin/protoc\n")

	cfg, err := Load("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, "/opt/protobuf/bin/protoc", cfg.Schema.Protoc)

	t.Setenv("CPSAT_SCHEMA_PROTOC", "protoc-27")
	cfg, err = Load("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, "protoc-27", cfg.Schema.Protoc)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--protoc", "/usr/local/bin/protoc"}))
	cfg, err = Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/protoc", cfg.Schema.Protoc)
}

func TestLoadEnvList(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CPSAT_SCHEMA_FILES", "a.proto,b.proto")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.proto", "b.proto"}, cfg.Schema.Files)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeFile(t, dir, "bad.yaml", "emit:\n  format: xml\nshim:\n  name: \"\"\n")

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "emit.format")
	assert.Contains(t, err.Error(), "shim.name is empty")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "shim.source", envKey("CPSAT_SHIM_SOURCE"))
	assert.Equal(t, "schema.go_package", envKey("CPSAT_SCHEMA_GO_PACKAGE"))
	assert.Equal(t, "emit.cgo_package", envKey("CPSAT_EMIT_CGO_PACKAGE"))
}

// chdir changes the working directory for the duration of the test,
// like testing.T.Chdir in newer Go releases.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
