// Package config loads cpsat-build settings.
//
// Precedence, highest first: changed flags, CPSAT_ environment variables,
// the config file, built-in defaults. The OR-Tools resolution variables
// (ORTOOLS_PREFIX and friends) are not part of this configuration; they are
// read by package env with presence semantics.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goplus/cpsat/internal/emit"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables that override config keys.
// CPSAT_SCHEMA_GO_PACKAGE sets schema.go_package.
const EnvPrefix = "CPSAT_"

// FileNames are searched in the working directory when no file is given.
var FileNames = []string{"cpsat-build.yaml", "cpsat-build.yml"}

type Config struct {
	Shim   Shim   `koanf:"shim"`
	Schema Schema `koanf:"schema"`
	Emit   Emit   `koanf:"emit"`
	Log    Log    `koanf:"log"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

type Shim struct {
	Source string `koanf:"source"`
	Name   string `koanf:"name"`
}

type Schema struct {
	Files     []string `koanf:"files"`
	Include   string   `koanf:"include"`
	Out       string   `koanf:"out"`
	GoPackage string   `koanf:"go_package"`

	// Protoc is the protoc binary, looked up in PATH unless it has a
	// directory part.
	Protoc string `koanf:"protoc"`
}

type Emit struct {
	Format     string `koanf:"format"`
	Output     string `koanf:"output"`
	CgoPackage string `koanf:"cgo_package"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults returns the built-in configuration keys.
func Defaults() map[string]any {
	return map[string]any{
		"shim.source":       "src/cp_sat_wrapper.cpp",
		"shim.name":         "cp_sat_wrapper",
		"schema.files":      []string{"src/cp_model.proto", "src/sat_parameters.proto"},
		"schema.include":    "src",
		"schema.out":        "cpmodel",
		"schema.go_package": "",
		"schema.protoc":     "protoc",
		"emit.format":       string(emit.Cgo),
		"emit.output":       "-",
		"emit.cgo_package":  "cpsat",
		"log.level":         "info",
		"log.format":        "console",
	}
}

// flagKeys maps command-line flags to config keys. Flags not listed here
// are command options and never reach the configuration.
var flagKeys = map[string]string{
	"format":      "emit.format",
	"output":      "emit.output",
	"cgo-package": "emit.cgo_package",
	"schema-out":  "schema.out",
	"protoc":      "schema.protoc",
	"log-level":   "log.level",
	"log-format":  "log.format",
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range FileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey turns CPSAT_SCHEMA_GO_PACKAGE into schema.go_package.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Load reads the configuration. cfgFile may be empty; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late in a build.
func (c *Config) Validate() error {
	var errs []error
	if c.Shim.Source == "" {
		errs = append(errs, errors.New("shim.source is empty"))
	}
	if c.Shim.Name == "" {
		errs = append(errs, errors.New("shim.name is empty"))
	}
	if len(c.Schema.Files) == 0 {
		errs = append(errs, errors.New("schema.files is empty"))
	}
	if _, err := emit.ParseFormat(c.Emit.Format); err != nil {
		errs = append(errs, fmt.Errorf("emit.format: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
