// Package cli provides the stagegate command line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/pkg/observability"
)

var (
	verbose bool
	logger  *slog.Logger
)

type commandTiming struct {
	startedAt time.Time
}

type commandTimingKey struct{}

func contextWithTiming(ctx context.Context) context.Context {
	return context.WithValue(ctx, commandTimingKey{}, commandTiming{startedAt: time.Now()})
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stagegate",
	Short: "StageGate - stage-gate transition engine",
	Long: `StageGate runs staged project lifecycles: ordered stages,
transition conditions on stage edges, a gate that decides whether a
transition is admissible, and an executor that commits it atomically.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		ctx := observability.WithCorrelationID(cmd.Context(), uuid.New().String())
		ctx = contextWithTiming(ctx)
		cmd.SetContext(ctx)
		logger.Debug("command start",
			"command", cmd.CommandPath(),
			"correlation_id", observability.CorrelationIDFromContext(ctx),
		)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		timing, ok := cmd.Context().Value(commandTimingKey{}).(commandTiming)
		if !ok {
			return
		}
		logger.Debug("command end",
			"command", cmd.CommandPath(),
			"correlation_id", observability.CorrelationIDFromContext(cmd.Context()),
			"duration_ms", time.Since(timing.startedAt).Milliseconds(),
		)
	},
}

// Execute runs the root command.
func Execute() {
	ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context, so signal
// cancellation reaches long-running subcommands such as serve.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}
