package stage

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/queries"
)

var listCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List a project's stages",
	Long: `List the stage graph of a project in order.

Examples:
  stagegate stage list 6b1e...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetStageGraphHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %w", err)
		}

		graph, err := app.GetStageGraphHandler.Handle(cmd.Context(), queries.GetStageGraphQuery{
			ProjectID: projectID,
		})
		if err != nil {
			return fmt.Errorf("failed to list stages: %w", err)
		}

		fmt.Printf("Project %s (%d stages)\n\n", projectID, len(graph.Stages))
		for _, s := range graph.Stages {
			marker := " "
			if s.Current {
				marker = ">"
			}
			fmt.Printf("%s %d. %s [%s]\n", marker, s.Order, s.Name, s.Status)
			fmt.Printf("     ID: %s\n", s.ID)
			if s.StartDate != nil {
				fmt.Printf("     Started: %s\n", s.StartDate.Format("2006-01-02"))
			}
			if s.EndDate != nil {
				fmt.Printf("     Ended: %s\n", s.EndDate.Format("2006-01-02"))
			}
			if len(s.Deliverables) > 0 {
				fmt.Printf("     Deliverables: %v\n", s.Deliverables)
			}
		}
		if graph.Finished {
			fmt.Println("\nAll stages completed.")
		}
		return nil
	},
}
