// Package cmd implements the tree-sitter-grammars command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/logging"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/metrics"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/progress"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/report"
	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/service"
)

const (
	exitOK         = 0
	exitError      = 1
	exitSyncFailed = 2
)

// errSyncFailed is returned by commands whose run left at least one language
// unsynchronized.
var errSyncFailed = errors.New("synchronization failed")

type rootOptions struct {
	file        string
	directory   string
	concurrency int
	timeout     time.Duration
	format      report.Format
	logLevel    logging.Level
	logFormat   logging.Format
	noProgress  bool
	metricsFile string

	stdout io.Writer
	stderr io.Writer
	log    *logging.Logger
}

// Main runs the command line with the process arguments and returns its exit
// status.
func Main() int {
	return Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errSyncFailed):
		fmt.Fprintln(stderr, "Error:", err)
		return exitSyncFailed
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{
		logLevel: logging.LevelInfo,
		stdout:   stdout,
		stderr:   stderr,
	}

	root := &cobra.Command{
		Use:           "tree-sitter-grammars",
		Short:         "Manage the tree-sitter grammar repositories listed in a manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			opts.log = logging.NewLogger(logging.Config{
				Level:  opts.logLevel,
				Format: opts.logFormat,
				Output: opts.stderr,
			})
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.file, "file", "f", "./languages.toml", "path to file containing languages and their grammar repositories")
	flags.StringVarP(&opts.directory, "directory", "d", "./grammars/", "path to directory containing grammar repositories")
	flags.IntVarP(&opts.concurrency, "concurrency", "j", service.DefaultWorkers, "number of grammars synchronized at once; 0 means no limit")
	flags.DurationVar(&opts.timeout, "timeout", 0, "abort synchronization after this long; 0 means no timeout")
	flags.Var(enumflag.New(&opts.format, "format", report.FormatIds, enumflag.EnumCaseInsensitive), "format", "output format; can be 'table', 'json' or 'yaml'")
	flags.Var(enumflag.New(&opts.logLevel, "level", logging.LevelIds, enumflag.EnumCaseInsensitive), "log-level", "log level; can be 'debug', 'info', 'warn' or 'error'")
	flags.Var(enumflag.New(&opts.logFormat, "format", logging.FormatIds, enumflag.EnumCaseInsensitive), "log-format", "log format; can be 'text' or 'json'")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "do not show a progress bar")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file after synchronizing")

	root.AddCommand(
		newAddCommand(opts),
		newUpdateCommand(opts),
		newListCommand(opts),
		newSchemaCommand(opts),
	)

	return root
}

func (opts *rootOptions) service() *service.Service {
	var bar *progress.Bar
	if !opts.noProgress && logging.IsTerminal(opts.stderr) {
		bar = progress.New(opts.stderr, "Synchronizing grammars")
	}

	return service.New(opts.file, osfs.New(opts.directory)).
		WithWorkers(opts.concurrency).
		WithLogger(opts.log).
		WithProgress(bar)
}

// withTimeout applies --timeout to ctx.
func (opts *rootOptions) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if opts.timeout > 0 {
		return context.WithTimeout(ctx, opts.timeout)
	}
	return context.WithCancel(ctx)
}

// finish renders the report, writes metrics if asked to and turns failed
// entries into errSyncFailed.
func (opts *rootOptions) finish(r *service.Report) error {
	if err := report.Outcomes(opts.stdout, opts.format, r); err != nil {
		return err
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			opts.log.Warnf("failed to write metrics to %s: %v", opts.metricsFile, err)
		}
	}

	if failed := r.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: %s", errSyncFailed, strings.Join(failed, ", "))
	}

	return nil
}

// notFound reports a missing language without failing the command.
func (opts *rootOptions) notFound(err error, target string) error {
	if errors.Is(err, service.ErrEntryNotFound) {
		fmt.Fprintf(opts.stderr, "Language not found: %s\n", target)
		return nil
	}
	return err
}
