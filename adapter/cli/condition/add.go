package condition

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/commands"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

var (
	addFrom        string
	addTo          string
	addName        string
	addDescription string
	addType        string
	addCheckName   string
	addAdvisory    bool
)

var addCmd = &cobra.Command{
	Use:   "add <project-id>",
	Short: "Bind a condition to a stage edge",
	Long: `Bind a transition condition to the edge between two consecutive
stages. Conditions are required by default; pass --advisory for a
condition that is reported but never blocks the transition.

Examples:
  stagegate condition add 6b1e... --from 9c2a... --to 1f4d... --name "Design review" --type approval
  stagegate condition add 6b1e... --from 9c2a... --to 1f4d... --name "Docs" --type document --advisory`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.AddConditionHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %w", err)
		}
		fromID, err := uuid.Parse(addFrom)
		if err != nil {
			return fmt.Errorf("invalid --from stage id: %w", err)
		}
		toID, err := uuid.Parse(addTo)
		if err != nil {
			return fmt.Errorf("invalid --to stage id: %w", err)
		}

		condType := domain.ConditionType(addType)
		if !condType.IsValid() {
			return fmt.Errorf("invalid --type %q (task_completion, data_quality, approval, document, custom)", addType)
		}

		result, err := app.AddConditionHandler.Handle(cmd.Context(), commands.AddConditionCommand{
			ProjectID:   projectID,
			FromStageID: fromID,
			ToStageID:   toID,
			Name:        addName,
			Description: addDescription,
			Type:        condType,
			Required:    !addAdvisory,
			CheckName:   addCheckName,
		})
		if err != nil {
			return fmt.Errorf("failed to add condition: %w", err)
		}

		fmt.Printf("Condition %s added.\n", result.ConditionID)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addFrom, "from", "", "outgoing stage id (required)")
	addCmd.Flags().StringVar(&addTo, "to", "", "incoming stage id (required)")
	addCmd.Flags().StringVar(&addName, "name", "", "condition name (required)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "condition description")
	addCmd.Flags().StringVar(&addType, "type", "custom", "condition type")
	addCmd.Flags().StringVar(&addCheckName, "check", "", "registered check name for custom evaluators")
	addCmd.Flags().BoolVar(&addAdvisory, "advisory", false, "report the condition without blocking the transition")
	_ = addCmd.MarkFlagRequired("from")
	_ = addCmd.MarkFlagRequired("to")
	_ = addCmd.MarkFlagRequired("name")
}
