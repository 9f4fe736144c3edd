package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arijanluiken/overlap/internal/indicator"
	"github.com/arijanluiken/overlap/internal/logging"
	"github.com/arijanluiken/overlap/internal/script"
)

func newScriptCmd(root *rootOptions) *cobra.Command {
	var (
		input string
		sets  []string
	)

	cmd := &cobra.Command{
		Use:   "script SCRIPT",
		Short: "Run a Starlark script over a CSV file",
		Long: `Script runs a Starlark script with open, high, low, close and volume bound
from the CSV columns of the same name and writes its result dict as CSV.

SCRIPT is a path to a .star file or the name of a script in the configured
scripts directory.

Example:
  overlap script crossover.star --input btc.csv --set fast=10 --set slow=30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging)
			engine := script.NewEngine(indicator.NewRegistry(cfg.Indicators), cfg.Scripts.Directory, logger)

			cols, err := readSeriesFile(input)
			if err != nil {
				return err
			}
			conf, err := parseSets(sets)
			if err != nil {
				return err
			}
			data := script.Data{
				Open:   cols["open"],
				High:   cols["high"],
				Low:    cols["low"],
				Close:  cols["close"],
				Volume: cols["volume"],
				Config: conf,
			}

			var out map[string][]float64
			if src, err := os.ReadFile(args[0]); err == nil {
				out, err = engine.Run(cmd.Context(), filepath.Base(args[0]), string(src), data)
				if err != nil {
					return err
				}
			} else {
				out, err = engine.RunFile(cmd.Context(), args[0], data)
				if err != nil {
					return err
				}
			}
			return writeOutputs(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "CSV file to read, - for stdin")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "config value passed to the script as key=value")
	return cmd
}

// parseSets turns key=value pairs into the script config dict. Numeric and
// boolean values are converted.
func parseSets(sets []string) (map[string]interface{}, error) {
	conf := make(map[string]interface{}, len(sets))
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", kv)
		}
		if i, err := strconv.Atoi(value); err == nil {
			conf[key] = i
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			conf[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			conf[key] = b
		} else {
			conf[key] = value
		}
	}
	return conf, nil
}
