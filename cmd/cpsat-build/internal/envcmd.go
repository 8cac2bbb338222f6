package internal

import (
	"encoding/json"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type envInfo struct {
	Root        string `json:"root"`
	RootFromEnv bool   `json:"root_from_env"`
	Target      string `json:"target"`
	ABI         string `json:"abi"`
	DocsOnly    bool   `json:"docs_only"`
	OutDir      string `json:"out_dir"`
	IncludeDir  string `json:"include_dir"`
	LibDir      string `json:"lib_dir"`
	StdFlag     string `json:"std_flag"`
	Compiler    string `json:"compiler"`
	Archiver    string `json:"archiver"`
}

func newEnvCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the resolved build environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := a.builder()
			cfg, p := b.Config(), b.Profile()
			info := envInfo{
				Root:        cfg.Root,
				RootFromEnv: cfg.RootFromEnv,
				Target:      cfg.Target.Triple,
				ABI:         cfg.Target.ABI.String(),
				DocsOnly:    cfg.DocsOnly,
				OutDir:      cfg.OutDir,
				IncludeDir:  cfg.IncludeDir(),
				LibDir:      cfg.LibDir(),
				StdFlag:     p.StdFlag,
				Compiler:    p.Compiler,
				Archiver:    p.Archiver,
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"KEY", "VALUE"})
			t.AppendRows([]table.Row{
				{"root", info.Root},
				{"root from env", strconv.FormatBool(info.RootFromEnv)},
				{"target", info.Target},
				{"abi", info.ABI},
				{"docs only", strconv.FormatBool(info.DocsOnly)},
				{"out dir", info.OutDir},
				{"include dir", info.IncludeDir},
				{"lib dir", info.LibDir},
				{"std flag", info.StdFlag},
				{"compiler", info.Compiler},
				{"archiver", info.Archiver},
			})
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
