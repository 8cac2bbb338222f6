package internal

import (
	"context"

	"github.com/goplus/cpsat/internal/build"
	"github.com/goplus/cpsat/internal/config"
	"github.com/goplus/cpsat/internal/env"
	"github.com/goplus/cpsat/internal/logx"
	"github.com/spf13/cobra"
)

// newBuilder is replaced in tests.
var newBuilder = func(cfg env.BuildConfig) *build.Builder {
	return build.NewBuilder(cfg, nil)
}

// app is the state shared by every command of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "cpsat-build",
		Short: "cpsat-build prepares the native side of the CP-SAT binding",
		Long: `cpsat-build compiles the CP-SAT protocol schemas, builds the C++ shim
against an OR-Tools installation and prints the flags needed to link it.

The installation root is taken from ORTOOLS_PREFIX. Set CPSAT_DOCS_BUILD to
skip everything native.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./cpsat-build.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(
		newBuildCmd(a),
		newPlanCmd(a),
		newEnvCmd(a),
		newSchemaCmd(a),
		newCleanCmd(a),
	)
	return rootCmd
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	l, err := logx.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logx.Set(l)
	if cfg.File != "" {
		logx.L().Debug().Str("file", cfg.File).Msg("loaded config")
	}
	a.cfg = cfg
	return nil
}

// builder resolves the build configuration from the process environment.
func (a *app) builder() *build.Builder {
	return newBuilder(env.Resolve(nil, env.CurrentHost())).WithProtoc(a.cfg.Schema.Protoc)
}

// Execute runs the command line. It is called by main.main.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
