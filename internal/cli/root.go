// Package cli provides the command-line interface for takeover.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/takeover/internal/client"
	"github.com/raphaelgruber/takeover/internal/config"
	"github.com/raphaelgruber/takeover/internal/metrics"
	"github.com/raphaelgruber/takeover/internal/render"
	"github.com/raphaelgruber/takeover/internal/stream"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	// Global config, logger and backend client
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	collector *metrics.Collector
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "takeover",
	Short: "Operator console for bot conversations",
	Long: `Takeover watches every conversation a chat bot is having and lets an
operator take over a conversation, reply by hand, and hand it back.

Run without a subcommand it opens the interactive console when attached to a
terminal, and prints the live event feed otherwise.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		// The console owns the terminal; log to the file only.
		if usesConsole(cmd) {
			logger, closeLog = config.SetupFileLogger(cfg.LogFile, cfg.LogLevel)
		} else {
			logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		}

		collector = metrics.NewCollector()
		apiClient = client.New(cfg.ServerURL, client.Options{
			Timeout:    cfg.Timeout,
			StreamPath: cfg.StreamPath,
			Logger:     logger.With("component", "client"),
			Metrics:    collector,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if isTerminal() {
			return runWatch(cmd, args)
		}
		return runTail(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "backend URL (default from config, http://localhost:8123)")

	// Add subcommands
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(replyCmd)
	rootCmd.AddCommand(versionCmd)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// usesConsole reports whether cmd runs the interactive console.
func usesConsole(cmd *cobra.Command) bool {
	return cmd.Name() == "watch" || (!cmd.HasParent() && isTerminal())
}

// outputTheme colors output for terminals only.
func outputTheme() render.Theme {
	if isTerminal() {
		return render.DefaultTheme
	}
	return render.PlainTheme
}

// signalContext is cancelled on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newStream creates the live event stream for the configured backend.
func newStream() *stream.Stream {
	dial := stream.DialFunc(func(ctx context.Context) (stream.Conn, error) {
		conn, err := apiClient.DialStream(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
	return stream.New(dial, stream.Options{
		Policy:  stream.FixedDelay(cfg.ReconnectDelay),
		Logger:  logger.With("component", "stream"),
		Metrics: collector,
	})
}
