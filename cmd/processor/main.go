// Command processor turns piston die press instrument dumps listed in a
// sample information workbook into specific-energy results written back
// to the same workbook.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string

	workbook         string
	workers          int
	csvDir           string
	plotDir          string
	metricsFile      string
	noLegacyRounding bool

	blank string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options

	root := &cobra.Command{
		Use:   "processor --file_name samples.xlsx",
		Short: "Piston die press test analysis",
		Long: `processor reads a sample information workbook, loads the instrument
file of every sample listed in it, corrects displacement for machine
compliance using the blank test named in column J (or default constants
when there is none), and writes corrected curves, specific energy,
pressure and compression ratio back to the workbook as one sheet per
sample.

Examples:
  processor --file_name samples.xlsx
  processor --file_name samples.xlsx --workers 4 --csv-dir out/csv --plot-dir out/plots
  processor calibrate --blank blank.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, o)
		},
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "YAML configuration file (default: processor.yaml if present)")

	root.Flags().StringVar(&o.workbook, "file_name", "", "sample information workbook (.xlsx)")
	root.Flags().IntVarP(&o.workers, "workers", "w", 0, "samples processed in parallel (overrides config)")
	root.Flags().StringVar(&o.csvDir, "csv-dir", "", "also write per-sample curves and a summary as CSV to this directory")
	root.Flags().StringVar(&o.plotDir, "plot-dir", "", "also write force/displacement PNG plots to this directory")
	root.Flags().StringVar(&o.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	root.Flags().BoolVar(&o.noLegacyRounding, "no-legacy-rounding", false, "compute total specific energy without 4-decimal intermediate rounding")
	_ = root.MarkFlagRequired("file_name")

	calibrate := &cobra.Command{
		Use:   "calibrate --blank blank.txt",
		Short: "Fit the compliance model to a blank test and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalibrate(cmd, o)
		},
	}
	calibrate.Flags().StringVar(&o.blank, "blank", "", "blank test instrument file")
	_ = calibrate.MarkFlagRequired("blank")

	root.AddCommand(calibrate)
	return root
}
