package cli

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/arijanluiken/overlap/internal/indicator"
)

type computeOptions struct {
	input         string
	asJSON        bool
	periodsColumn string

	period        int
	multiplier    float64
	fast          int
	slow          int
	seedWithPrice bool
	fastLimit     float64
	slowLimit     float64
	minPeriod     int
	maxPeriod     int
}

func newComputeCmd(root *rootOptions) *cobra.Command {
	opts := &computeOptions{}

	cmd := &cobra.Command{
		Use:   "compute INDICATOR",
		Short: "Compute an indicator over a CSV file and write the result to stdout",
		Long: `Compute reads a CSV file with close (or high and low) columns and writes
the indicator outputs as CSV, or as JSON with --json.

Example:
  overlap compute ema --input btc.csv --period 20
  overlap compute mavp --input btc.csv --periods-column periods`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			registry := indicator.NewRegistry(cfg.Indicators)

			cols, err := readSeriesFile(opts.input)
			if err != nil {
				return err
			}
			req, err := opts.request(cmd, args[0], cols)
			if err != nil {
				return err
			}

			res, err := registry.Compute(req)
			if err != nil {
				return err
			}

			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return writeOutputs(cmd.OutOrStdout(), res.Outputs)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "-", "CSV file to read, - for stdin")
	f.BoolVar(&opts.asJSON, "json", false, "write the result as JSON")
	f.StringVar(&opts.periodsColumn, "periods-column", "", "mavp: CSV column holding the per-bar periods")
	f.IntVarP(&opts.period, "period", "p", 0, "time period")
	f.Float64Var(&opts.multiplier, "multiplier", 0, "bbands: band width in standard deviations")
	f.IntVar(&opts.fast, "fast", 0, "kama: fast smoothing period")
	f.IntVar(&opts.slow, "slow", 0, "kama: slow smoothing period")
	f.BoolVar(&opts.seedWithPrice, "seed-with-price", false, "kama: seed with the first price instead of zero")
	f.Float64Var(&opts.fastLimit, "fast-limit", 0, "mama: fast limit")
	f.Float64Var(&opts.slowLimit, "slow-limit", 0, "mama: slow limit")
	f.IntVar(&opts.minPeriod, "min-period", 0, "mavp: minimum period")
	f.IntVar(&opts.maxPeriod, "max-period", 0, "mavp: maximum period")

	return cmd
}

// request builds a compute request from the parsed columns. Only flags the
// user set are carried so that configured defaults still apply.
func (o *computeOptions) request(cmd *cobra.Command, name string, cols series) (indicator.Request, error) {
	req := indicator.Request{
		Indicator: name,
		High:      cols["high"],
		Low:       cols["low"],
		Close:     cols["close"],
	}

	f := cmd.Flags()
	if f.Changed("period") {
		req.Params.TimePeriod = o.period
	}
	if f.Changed("multiplier") {
		req.Params.Multiplier = o.multiplier
	}
	if f.Changed("fast") {
		req.Params.Fast = o.fast
	}
	if f.Changed("slow") {
		req.Params.Slow = o.slow
	}
	if f.Changed("seed-with-price") {
		seed := o.seedWithPrice
		req.Params.SeedWithPrice = &seed
	}
	if f.Changed("fast-limit") {
		req.Params.FastLimit = o.fastLimit
	}
	if f.Changed("slow-limit") {
		req.Params.SlowLimit = o.slowLimit
	}
	if f.Changed("min-period") {
		req.Params.MinPeriod = o.minPeriod
	}
	if f.Changed("max-period") {
		req.Params.MaxPeriod = o.maxPeriod
	}

	if o.periodsColumn != "" {
		col, ok := cols[o.periodsColumn]
		if !ok {
			return req, fmt.Errorf("column %q not found in input", o.periodsColumn)
		}
		req.Params.Periods = make([]int, len(col))
		for i, v := range col {
			if math.IsNaN(v) {
				return req, fmt.Errorf("column %q: missing period at row %d", o.periodsColumn, i+1)
			}
			req.Params.Periods[i] = int(v)
		}
	}
	return req, nil
}
