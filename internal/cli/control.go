package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/takeover/internal/control"
	"github.com/raphaelgruber/takeover/internal/models"
)

var controlCmd = &cobra.Command{
	Use:   "control <conversation-id> [bot|admin|toggle]",
	Short: "Show or change who controls a conversation",
	Long: `Show who controls a conversation, or hand it to the bot or the operator.

The status printed after a change is the one the server reports, which can
differ from the one requested if someone else changed it meanwhile.

Examples:
  takeover control 628111           # show status
  takeover control 628111 admin     # take over
  takeover control 628111 bot       # hand back to the bot
  takeover control 628111 toggle`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"bot", "admin", "toggle"},
	RunE:      runControl,
}

func runControl(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := models.ConversationID(args[0])

	current, err := apiClient.ControlStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("get control status: %w", err)
	}
	if len(args) == 1 {
		fmt.Printf("%s: controlled by %s\n", id, current)
		return nil
	}

	if args[1] != "toggle" {
		want, err := models.ParseControlStatus(args[1])
		if err != nil {
			return err
		}
		if want == current {
			fmt.Printf("%s: already controlled by %s\n", id, current)
			return nil
		}
	}

	// With two states, any change is a toggle.
	m := control.New()
	m.Set(id, current)
	reported, err := m.Toggle(ctx, id, apiClient)
	if err != nil {
		return fmt.Errorf("change control: %w", err)
	}

	fmt.Printf("%s: controlled by %s\n", id, reported)
	return nil
}
