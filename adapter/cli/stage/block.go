package stage

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/commands"
)

var blockReason string

var blockCmd = &cobra.Command{
	Use:   "block <stage-id>",
	Short: "Mark an active stage as blocked",
	Long: `Mark an in-progress stage as blocked on an external event.

Examples:
  stagegate stage block 6b1e... --reason "waiting for legal review"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.BlockStageHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		stageID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid stage id: %w", err)
		}

		err = app.BlockStageHandler.Handle(cmd.Context(), commands.BlockStageCommand{
			StageID: stageID,
			Reason:  blockReason,
		})
		if err != nil {
			return fmt.Errorf("failed to block stage: %w", err)
		}

		fmt.Printf("Stage %s blocked.\n", stageID)
		return nil
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <stage-id>",
	Short: "Return a blocked stage to in progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.UnblockStageHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		stageID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid stage id: %w", err)
		}

		err = app.UnblockStageHandler.Handle(cmd.Context(), commands.UnblockStageCommand{
			StageID: stageID,
		})
		if err != nil {
			return fmt.Errorf("failed to unblock stage: %w", err)
		}

		fmt.Printf("Stage %s unblocked.\n", stageID)
		return nil
	},
}

func init() {
	blockCmd.Flags().StringVar(&blockReason, "reason", "", "why the stage is blocked")
}
