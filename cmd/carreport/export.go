package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"cardash/internal/exporter"
	"cardash/internal/validation"
)

type exportCmd struct {
	opts     *options
	csvPath  string
	xlsxPath string
	top      int
}

func (*exportCmd) Name() string { return "export" }
func (*exportCmd) Synopsis() string {
	return "write the deviation table to CSV and the dashboard to Excel"
}
func (*exportCmd) Usage() string {
	return `carreport export [-csv <file>] [-xlsx <file>] [-top n]

  Writes the deviation table as CSV and/or a styled workbook with the
  metric cards, deviations, top brands, monthly volume and engine sizes.
  At least one of -csv and -xlsx is required.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.csvPath, "csv", "", "Deviation table CSV output file")
	f.StringVar(&c.xlsxPath, "xlsx", "", "Dashboard workbook output file")
	f.IntVar(&c.top, "top", 0, "Number of brands in the workbook (defaults to the configured top brands)")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.csvPath == "" && c.xlsxPath == "" {
		fmt.Fprintln(c.opts.stderr, "Error: one of -csv or -xlsx is required")
		f.Usage()
		return subcommands.ExitUsageError
	}

	s, err := c.opts.open()
	if err != nil {
		c.opts.fail(err)
		return subcommands.ExitFailure
	}

	files := validation.NewFileValidator(s.logger)
	for path, ext := range map[string]string{c.csvPath: ".csv", c.xlsxPath: ".xlsx"} {
		if path == "" {
			continue
		}
		if err := files.ValidateOutputFile(path, ext); err != nil {
			c.opts.fail(err)
			return subcommands.ExitUsageError
		}
	}

	metrics, err := s.dashboard.AggregateMetrics(ctx)
	if err != nil {
		c.opts.fail(err)
		return subcommands.ExitFailure
	}

	if c.csvPath != "" {
		rows, err := exporter.NewCSVWriter("", s.logger).SaveDeviations(c.csvPath, metrics.Deviations)
		if err != nil {
			c.opts.fail(err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(c.opts.stdout, "wrote %d transactions to %s\n", rows, c.csvPath)
	}

	if c.xlsxPath != "" {
		top := c.top
		if top <= 0 {
			top = s.cfg.Dataset.TopBrands
		}
		graphic, err := s.dashboard.AggregateGraphic(ctx, top)
		if err != nil {
			c.opts.fail(err)
			return subcommands.ExitFailure
		}
		if err := exporter.NewWorkbookWriter(s.logger).SaveAs(c.xlsxPath, metrics, graphic); err != nil {
			c.opts.fail(err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(c.opts.stdout, "wrote dashboard workbook to %s\n", c.xlsxPath)
	}

	return subcommands.ExitSuccess
}
