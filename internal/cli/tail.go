package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/takeover/internal/models"
	"github.com/raphaelgruber/takeover/internal/session"
)

var tailSelect string

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the live event feed",
	Long: `Print the conversation list, then every new conversation and message as
it arrives. With --select, the transcript of one conversation is printed and
its new messages are shown in full.

Examples:
  takeover tail
  takeover tail --select 628111`,
	Args: cobra.NoArgs,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVar(&tailSelect, "select", "", "conversation to follow in full")
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	loop := session.NewLoop()
	surface := newFeedSurface(os.Stdout, os.Stderr, outputTheme())
	mgr := session.NewManager(apiClient, surface, loop, session.Options{
		Logger:  logger.With("component", "session"),
		Metrics: collector,
	})

	s := newStream()
	s.OnEvent(mgr.Deliver)
	if err := s.Connect(ctx); err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer s.Close()

	loop.Dispatch(func() {
		mgr.Start(ctx)
		if tailSelect != "" {
			mgr.Select(ctx, models.ConversationID(tailSelect))
		}
	})

	err := loop.Run(ctx)
	logStats()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
