package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arijanluiken/overlap/internal/indicator"
)

func newListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "indicators",
		Short: "List the available indicators",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			registry := indicator.NewRegistry(cfg.Indicators)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tINPUT\tOUTPUTS\tDESCRIPTION")
			for _, def := range registry.Describe() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Name, def.Source, strings.Join(def.Outputs, ","), def.Description)
			}
			return tw.Flush()
		},
	}
}
