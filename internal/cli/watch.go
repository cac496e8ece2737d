package cli

import (
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/takeover/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the interactive operator console",
	Long: `Open the interactive console: the conversation list on the left, the
selected transcript on the right, updated live.

Keys:
  ↑/↓, j/k   move through conversations
  enter      open the conversation under the cursor
  t          take over / release control
  r, tab     write a reply (only while you have control)
  esc        leave the reply field
  q          quit

Logs go to the log file only (TAKEOVER_LOG_FILE).`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	logger.Info("console starting", "server", cfg.ServerURL)
	err := tui.Run(ctx, apiClient, newStream(), tui.Options{
		Theme:   outputTheme(),
		Logger:  logger.With("component", "session"),
		Metrics: collector,
	})
	logStats()
	return err
}

// logStats writes the session's request and stream statistics to the log.
func logStats() {
	snap := collector.Snapshot()
	for _, op := range snap.Operations {
		logger.Info("request stats",
			"op", op.Name,
			"count", op.Count,
			"errors", op.Errors,
			"avg_ms", op.AvgTimeMs,
			"max_ms", op.MaxTimeMs,
		)
	}
	logger.Info("session stats", "uptime_s", snap.UptimeSeconds, "counters", snap.Counters)
}
