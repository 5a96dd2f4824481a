package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"cardash/pkg/contracts/domain"
)

type metricsCmd struct {
	opts *options
}

func (*metricsCmd) Name() string     { return "metrics" }
func (*metricsCmd) Synopsis() string { return "display the aggregate metric cards and deviation table" }
func (*metricsCmd) Usage() string {
	return `carreport metrics

  Displays the median of every numeric field over the recent window, its
  change against the baseline window and each transaction's deviation.
`
}

func (*metricsCmd) SetFlags(*flag.FlagSet) {}

func (c *metricsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.opts.render(ctx, domain.AggregateMetrics{})
}

type graphicCmd struct {
	opts *options
	top  int
}

func (*graphicCmd) Name() string     { return "graphic" }
func (*graphicCmd) Synopsis() string { return "display monthly volume, top brands and correlations" }
func (*graphicCmd) Usage() string {
	return `carreport graphic [-top n]

  Displays transactions per month, the n most traded brands, the
  correlation matrix, the engine size buckets and the age/mileage scatter.
`
}

func (c *graphicCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.top, "top", 0, "Number of brands to list (defaults to the configured top brands)")
}

func (c *graphicCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.top < 0 {
		fmt.Fprintf(c.opts.stderr, "Error: -top must be positive, got %d\n", c.top)
		return subcommands.ExitUsageError
	}
	s, err := c.opts.open()
	if err != nil {
		c.opts.fail(err)
		return subcommands.ExitFailure
	}
	top := c.top
	if top == 0 {
		top = s.cfg.Dataset.TopBrands
	}
	view, err := s.dashboard.AggregateGraphic(ctx, top)
	if err != nil {
		c.opts.fail(err)
		return subcommands.ExitFailure
	}
	if err := c.opts.show(s, view); err != nil {
		c.opts.fail(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type brandCmd struct {
	opts *options
	name string
}

func (*brandCmd) Name() string     { return "brand" }
func (*brandCmd) Synopsis() string { return "display the exterior colour breakdown of one brand" }
func (*brandCmd) Usage() string {
	return `carreport brand -name <brand>

  Displays how the transactions of a brand split across exterior colours.
  Brand names match case-insensitively.
`
}

func (c *brandCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Car brand to display (required)")
}

func (c *brandCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.name) == "" {
		fmt.Fprintln(c.opts.stderr, "Error: -name is required")
		f.Usage()
		return subcommands.ExitUsageError
	}
	return c.opts.render(ctx, domain.IndividualBrand{Brand: c.name})
}

type brandsCmd struct {
	opts *options
	top  int
}

func (*brandsCmd) Name() string     { return "brands" }
func (*brandsCmd) Synopsis() string { return "list the brands offered by the brand picker" }
func (*brandsCmd) Usage() string {
	return `carreport brands [-top n]

  Lists the most traded brands with their transaction counts.
`
}

func (c *brandsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.top, "top", 0, "Number of brands to list (defaults to the configured top brands)")
}

func (c *brandsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := c.opts.open()
	if err != nil {
		c.opts.fail(err)
		return subcommands.ExitFailure
	}
	top := c.top
	if top <= 0 {
		top = s.cfg.Dataset.TopBrands
	}
	brands, err := s.dashboard.Brands(ctx, top)
	if err != nil {
		c.opts.fail(err)
		return subcommands.ExitFailure
	}
	if err := c.opts.printMarkdown(brandsMarkdown(brands)); err != nil {
		c.opts.fail(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func brandsMarkdown(brands []domain.BrandCount) string {
	var b strings.Builder
	b.WriteString("# Brands\n\n")
	if len(brands) == 0 {
		b.WriteString("_No transactions._\n")
		return b.String()
	}
	b.WriteString("| # | Brand | Transactions |\n|---:|---|---:|\n")
	for i, bc := range brands {
		fmt.Fprintf(&b, "| %d | %s | %d |\n", i+1, bc.Brand, bc.Count)
	}
	return b.String()
}

// render computes view and prints it
func (o *options) render(ctx context.Context, view domain.View) subcommands.ExitStatus {
	s, err := o.open()
	if err != nil {
		o.fail(err)
		return subcommands.ExitFailure
	}
	rendered, err := s.dashboard.Render(ctx, view)
	if err != nil {
		o.fail(err)
		return subcommands.ExitFailure
	}
	if err := o.show(s, rendered); err != nil {
		o.fail(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
