package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/takeover/internal/client"
	"github.com/raphaelgruber/takeover/internal/control"
	"github.com/raphaelgruber/takeover/internal/models"
	"github.com/raphaelgruber/takeover/internal/render"
)

var showWidth int

var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print a conversation transcript",
	Long: `Print the transcript and control status of one conversation.

Examples:
  takeover show 628111
  takeover show 628111 --width 120`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().IntVarP(&showWidth, "width", "w", feedWidth, "wrap transcript at this width")
}

func runShow(cmd *cobra.Command, args []string) error {
	id := models.ConversationID(args[0])

	var (
		items  []models.HistoryItem
		status models.ControlStatus
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var err error
		items, err = apiClient.History(ctx, id)
		if client.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		status, err = apiClient.ControlStatus(ctx, id)
		if err != nil {
			return fmt.Errorf("get control status: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	theme := outputTheme()
	blocks := render.RenderHistory(items)

	fmt.Printf("Chat with %s\n", id)
	fmt.Printf("Controlled by %s (%s)\n\n", status, control.Label(status))
	if len(blocks) == 0 {
		fmt.Println(theme.HintStyle().Render("No messages yet."))
		return nil
	}
	fmt.Println(theme.Transcript(blocks, showWidth))
	return nil
}
