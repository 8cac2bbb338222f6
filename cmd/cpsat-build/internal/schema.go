package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Compile the protocol schemas only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.builder().Schema(cmd.Context(), schemaOptions(a.cfg))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, f := range res.Generated {
				fmt.Fprintln(w, f)
			}
			return nil
		},
	}
	addSchemaFlags(cmd)
	return cmd
}
