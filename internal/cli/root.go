// Package cli implements salesctl, a terminal front end over the same
// analytics the dashboard serves.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/services"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

func Run() ExitCode {
	rootCmd := NewRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

// NewRootCmd builds the command tree. Tables go to out, logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "salesctl",
		Short:        "Explore the online sales export from the terminal.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringP("file", "f", "cleaned_dataset.csv", "cleaned sales CSV")
	flags.String("issues-file", "online_sales_dataset.csv", "raw sales CSV used by the quality report")
	flags.String("start", "", "first invoice date to include (YYYY-MM-DD)")
	flags.String("end", "", "last invoice date to include (YYYY-MM-DD)")
	flags.String("country", dataset.All, "country filter")
	flags.String("category", dataset.All, "category filter")
	flags.BoolP("verbose", "v", false, "set debug logging level")

	rootCmd.AddCommand(
		newOverviewCmd(),
		newAggregateCmd(),
		newDescribeCmd(),
		newCorrelateCmd(),
		newDominanceCmd(),
		newQuestionsCmd(),
		newQualityCmd(),
	)
	return rootCmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// session carries what every subcommand needs after flag parsing.
type session struct {
	ctx       context.Context
	analytics *services.Analytics
	filter    dataset.FilterSpec
	log       *slog.Logger
	out       io.Writer
}

func newSession(cmd *cobra.Command) (*session, context.CancelFunc, error) {
	flags := cmd.Root().PersistentFlags()
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	file, err := flags.GetString("file")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get file flag: %w", err)
	}
	issues, err := flags.GetString("issues-file")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get issues-file flag: %w", err)
	}
	var vals [4]string
	for i, name := range []string{"start", "end", "country", "category"} {
		if vals[i], err = flags.GetString(name); err != nil {
			return nil, nil, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
	}
	filter, err := services.ParseFilter(vals[0], vals[1], vals[2], vals[3])
	if err != nil {
		return nil, nil, err
	}

	log := newLogger(cmd.ErrOrStderr(), verbose)
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)

	return &session{
		ctx: ctx,
		analytics: services.NewAnalytics(services.Options{
			SalesFile:  file,
			IssuesFile: issues,
			Logger:     log,
		}),
		filter: filter,
		log:    log,
		out:    cmd.OutOrStdout(),
	}, cancel, nil
}

// runWith wraps a subcommand body with session setup.
func runWith(fn func(s *session, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, cancel, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		start := time.Now()
		if err := fn(s, cmd); err != nil {
			return err
		}
		s.log.Debug("command finished", "command", cmd.Name(), "duration", time.Since(start))
		return nil
	}
}

func (s *session) table(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(s.out)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}
