package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/takeover/internal/directory"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Long: `List the conversations known to the backend, in the order it returns them.

Examples:
  takeover list
  takeover list -v     # include control status`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ids, err := apiClient.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	dir := directory.New()
	dir.InitialLoad(ids)

	if !verbose || dir.Empty() {
		printConversations(os.Stdout, dir.Entries())
		return nil
	}

	fmt.Printf("%-24s %s\n", "CONVERSATION", "CONTROLLED BY")
	fmt.Println("--------------------------------------")
	for _, id := range dir.IDs() {
		status, err := apiClient.ControlStatus(ctx, id)
		if err != nil {
			fmt.Printf("%-24s ? (%v)\n", id, err)
			continue
		}
		fmt.Printf("%-24s %s\n", id, status)
	}
	return nil
}
