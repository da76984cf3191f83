// Command strata-log views and analyzes Strata event capture files.
//
// Capture files are created by pointing the SDK's event logger at a file
// (the -log flag of strata-tail, or log.NewFileLogger in code).
//
// Usage:
//
//	strata-log <command> [flags] <file.cbor>
//
// Commands:
//
//	view     View capture in human-readable format
//	export   Export capture to JSONL or CSV
//	filter   Filter capture and write a new file
//	stats    Show statistics about the capture
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/strata-base/strata-go/cmd/strata-log/commands"
	"github.com/strata-base/strata-go/pkg/log"
)

const usage = `strata-log - Strata Event Capture Analyzer

Usage:
  strata-log <command> [flags] <file.cbor>

Commands:
  view     View capture in human-readable format
  export   Export capture to JSONL or CSV format
  filter   Filter capture and write to new file
  stats    Show statistics about the capture

Use "strata-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the shared filter flags and returns a builder.
func filterFlags(fs *flag.FlagSet) func() (log.Filter, error) {
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (frame, state, sync, request, error)")
	connID := fs.String("conn-id", "", "Filter by session ID")
	topic := fs.String("topic", "", "Filter by topic")

	return func() (log.Filter, error) {
		filter := log.Filter{
			ConnectionID: *connID,
			Topic:        *topic,
		}
		if *direction != "" {
			d, err := commands.ParseDirectionFlag(*direction)
			if err != nil {
				return log.Filter{}, err
			}
			filter.Direction = &d
		}
		if *category != "" {
			c, err := commands.ParseCategoryFlag(*category)
			if err != nil {
				return log.Filter{}, err
			}
			filter.Category = &c
		}
		return filter, nil
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	buildFilter := filterFlags(fs)
	parseOrExit(fs, args)

	filter, err := buildFilter()
	if err != nil {
		fatal(err)
	}
	if err := commands.RunView(fs.Arg(0), filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	parseOrExit(fs, args)

	if err := commands.RunExport(fs.Arg(0), *format, *output); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	buildFilter := filterFlags(fs)
	output := fs.String("o", "", "Output file (required)")
	parseOrExit(fs, args)

	if *output == "" {
		fatal(fmt.Errorf("output file required (-o)"))
	}
	filter, err := buildFilter()
	if err != nil {
		fatal(err)
	}

	count, err := commands.RunFilter(fs.Arg(0), filter, *output)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %d events to %s\n", count, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	parseOrExit(fs, args)

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fatal(err)
	}
}

func parseOrExit(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
