package transition

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/queries"
)

var (
	historyLimit  int
	historyOffset int
)

var historyCmd = &cobra.Command{
	Use:   "history <project-id>",
	Short: "Show the transition history of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetTransitionHistoryHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %w", err)
		}

		records, err := app.GetTransitionHistoryHandler.Handle(cmd.Context(), queries.GetTransitionHistoryQuery{
			ProjectID: projectID,
			Limit:     historyLimit,
			Offset:    historyOffset,
		})
		if err != nil {
			return fmt.Errorf("failed to load transition history: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No transitions recorded.")
			return nil
		}

		for _, r := range records {
			fmt.Printf("%s  %s -> %s  (record %s)\n", r.CommittedAt.Format("2006-01-02 15:04:05"), r.FromStageID, r.ToStageID, r.ID)
			if r.Notes != "" {
				fmt.Printf("    notes: %s\n", r.Notes)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum records to show")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "records to skip")
}
