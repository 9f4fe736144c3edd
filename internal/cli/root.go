package cli

import (
	"github.com/spf13/cobra"

	"github.com/arijanluiken/overlap/pkg/config"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	configPath string
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.LoadFile(o.configPath)
}

// NewRootCmd builds the overlap command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "overlap",
		Short: "Overlap studies indicators as a library, service and CLI",
		Long: `Overlap computes overlap studies indicators (moving averages, Bollinger
Bands, KAMA, MAMA, Hilbert transform trendline, MAVP) over price series.

It provides:
  - an HTTP and WebSocket API backed by a pool of calculator actors
  - stored datasets imported from Bybit or Bitvavo
  - Starlark scripts that combine indicators
  - one-shot computations over CSV files`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to YAML config file")

	cmd.AddCommand(
		newServeCmd(opts),
		newComputeCmd(opts),
		newScriptCmd(opts),
		newListCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
