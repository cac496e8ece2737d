package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/takeover/internal/models"
)

var replyCmd = &cobra.Command{
	Use:   "reply <conversation-id> <text>...",
	Short: "Send a reply as the operator",
	Long: `Send a message to the user of a conversation you have taken over.

Examples:
  takeover control 628111 admin
  takeover reply 628111 "Hi, a colleague will help you from here."`,
	Args: cobra.MinimumNArgs(2),
	RunE: runReply,
}

func runReply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := models.ConversationID(args[0])
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return errors.New("reply text is empty")
	}

	status, err := apiClient.ControlStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("get control status: %w", err)
	}
	if status != models.ControlAdmin {
		return fmt.Errorf("%s is controlled by the bot; take over first: takeover control %s admin", id, id)
	}

	if err := apiClient.Reply(ctx, id, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	fmt.Println("Reply sent.")
	return nil
}
