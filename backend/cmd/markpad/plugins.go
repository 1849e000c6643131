package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/jun/markpad/core/plugin"
)

func newPluginsCmd(root *rootOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List plugins and their state",
		Long:  "Lists the built-in plugins with the settings file applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := root.registry()
			if err != nil {
				return err
			}
			records := reg.List()
			if kind != "" {
				k, err := plugin.ParseKind(kind)
				if err != nil {
					return err
				}
				records = reg.ListKind(k)
			}

			out := termenv.NewOutput(cmd.OutOrStdout())
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tSTATE\tCONFIG")
			for _, rec := range records {
				state := out.String("enabled").Foreground(out.Color("2"))
				if !rec.Enabled {
					state = out.String("disabled").Faint()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID(), rec.Kind(), state, formatConfig(rec.Config))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "only list plugins of this kind")
	return cmd
}

func formatConfig(cfg plugin.Config) string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, cfg[k]))
	}
	return strings.Join(parts, " ")
}
