// Command carreport prints the dashboard views in a terminal and exports
// them to CSV and Excel.
//
//	carreport [-data export_car_df.csv] metrics
//	carreport graphic -top 5
//	carreport brand -name Toyota
//	carreport brands
//	carreport export -csv deviations.csv -xlsx dashboard.xlsx
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	os.Exit(run(context.Background(), path.Base(os.Args[0]), os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args and executes the selected subcommand
func run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{stdout: stdout, stderr: stderr}
	opts.register(fs)

	commander := subcommands.NewCommander(fs, name)
	commander.Output = stdout
	commander.Error = stderr

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&metricsCmd{opts: opts}, "views")
	commander.Register(&graphicCmd{opts: opts}, "views")
	commander.Register(&brandCmd{opts: opts}, "views")
	commander.Register(&brandsCmd{opts: opts}, "views")
	commander.Register(&exportCmd{opts: opts}, "export")

	if err := fs.Parse(args); err != nil {
		return int(subcommands.ExitUsageError)
	}
	return int(commander.Execute(ctx))
}
