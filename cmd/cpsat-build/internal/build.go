package internal

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/goplus/cpsat/internal/build"
	"github.com/goplus/cpsat/internal/config"
	"github.com/goplus/cpsat/internal/emit"
	"github.com/goplus/cpsat/internal/schema"
	"github.com/spf13/cobra"
)

func newBuildCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the schemas and the shim, then print link flags",
		Long: `Build compiles the protocol schemas, compiles the C++ shim against the
OR-Tools installation and prints the link directives in the chosen format.
Nothing is written unless every step succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := emit.ParseFormat(a.cfg.Emit.Format)
			if err != nil {
				return err
			}
			b := a.builder()
			// Fail before compiling when the format cannot carry the flags.
			if err := emit.CheckABI(format, b.Profile().ABI); err != nil {
				return err
			}
			opts := buildOptions(a.cfg)
			opts.Force = force
			res, err := b.Build(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return writeResult(cmd, a.cfg, res.Output)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "recompile the shim even if it is up to date")
	addOutputFlags(cmd)
	addSchemaFlags(cmd)
	return cmd
}

func addSchemaFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema-out", "", "directory for generated Go bindings")
	cmd.Flags().String("protoc", "", "protoc binary")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "", "output format (cargo, cgo, env, json, yaml, table)")
	cmd.Flags().StringP("output", "o", "", `output file, "-" for stdout`)
	cmd.Flags().String("cgo-package", "", "package clause of the cgo output")
}

func schemaOptions(cfg *config.Config) schema.Options {
	return schema.Options{
		Files:     cfg.Schema.Files,
		Include:   cfg.Schema.Include,
		OutDir:    cfg.Schema.Out,
		GoPackage: cfg.Schema.GoPackage,
	}
}

func buildOptions(cfg *config.Config) build.Options {
	return build.Options{
		ShimSource: cfg.Shim.Source,
		ShimName:   cfg.Shim.Name,
		Schema:     schemaOptions(cfg),
	}
}

// writeResult renders out fully before writing, so a rendering error never
// leaves a partial file behind.
func writeResult(cmd *cobra.Command, cfg *config.Config, out *emit.Output) error {
	format, err := emit.ParseFormat(cfg.Emit.Format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := emit.Write(&buf, format, out, emit.Options{Package: cfg.Emit.CgoPackage}); err != nil {
		return err
	}
	if cfg.Emit.Output == "" || cfg.Emit.Output == "-" {
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Emit.Output), 0o755); err != nil {
		return err
	}
	return os.WriteFile(cfg.Emit.Output, buf.Bytes(), 0o644)
}
