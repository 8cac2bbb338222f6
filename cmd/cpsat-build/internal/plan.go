package internal

import (
	"github.com/spf13/cobra"
)

func newPlanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print link flags for an already built shim",
		Long: `Plan prints the link directives for the current target without running
any tool. The shim must have been built by "cpsat-build build" first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.builder().Plan(a.cfg.Shim.Name)
			if err != nil {
				return err
			}
			return writeResult(cmd, a.cfg, out)
		},
	}
	addOutputFlags(cmd)
	return cmd
}
