package stage

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/commands"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <stage-id>",
	Short: "Delete a stage",
	Long: `Delete a stage that no transition record references. Stages that
appear in transition history cannot be deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.DeleteStageHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		stageID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid stage id: %w", err)
		}

		err = app.DeleteStageHandler.Handle(cmd.Context(), commands.DeleteStageCommand{
			StageID: stageID,
		})
		if err != nil {
			return fmt.Errorf("failed to delete stage: %w", err)
		}

		fmt.Printf("Stage %s deleted.\n", stageID)
		return nil
	},
}
