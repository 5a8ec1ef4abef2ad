package condition

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/commands"
)

var removeCmd = &cobra.Command{
	Use:   "remove <condition-id>",
	Short: "Remove a transition condition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.DeleteConditionHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		conditionID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid condition id: %w", err)
		}

		if err := app.DeleteConditionHandler.Handle(cmd.Context(), commands.DeleteConditionCommand{
			ConditionID: conditionID,
		}); err != nil {
			return fmt.Errorf("failed to remove condition: %w", err)
		}

		fmt.Printf("Condition %s removed.\n", conditionID)
		return nil
	},
}
