package transition

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/commands"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

var (
	commitFrom     string
	commitTo       string
	commitDecision string
	commitNotes    string
)

var commitCmd = &cobra.Command{
	Use:   "commit <project-id>",
	Short: "Commit an admissible transition",
	Long: `Commit a transition using a decision issued by evaluate. The
decision must still be fresh; an expired decision requires re-evaluation.

Examples:
  stagegate transition commit 6b1e... --from 9c2a... --to 1f4d... --decision 42e8...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CommitTransitionHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %w", err)
		}
		fromID, err := uuid.Parse(commitFrom)
		if err != nil {
			return fmt.Errorf("invalid --from stage id: %w", err)
		}
		toID, err := uuid.Parse(commitTo)
		if err != nil {
			return fmt.Errorf("invalid --to stage id: %w", err)
		}
		decisionID, err := uuid.Parse(commitDecision)
		if err != nil {
			return fmt.Errorf("invalid --decision id: %w", err)
		}

		result, err := app.CommitTransitionHandler.Handle(cmd.Context(), commands.CommitTransitionCommand{
			Request: domain.TransitionRequest{
				ProjectID:   projectID,
				FromStageID: fromID,
				ToStageID:   toID,
			},
			DecisionID: decisionID,
			Notes:      commitNotes,
		})
		if err != nil {
			return fmt.Errorf("failed to commit transition: %w", err)
		}

		fmt.Printf("Transition committed (record %s).\n", result.RecordID)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVar(&commitFrom, "from", "", "outgoing stage id (required)")
	commitCmd.Flags().StringVar(&commitTo, "to", "", "incoming stage id (required)")
	commitCmd.Flags().StringVar(&commitDecision, "decision", "", "decision id from evaluate (required)")
	commitCmd.Flags().StringVar(&commitNotes, "notes", "", "notes for the audit record")
	_ = commitCmd.MarkFlagRequired("from")
	_ = commitCmd.MarkFlagRequired("to")
	_ = commitCmd.MarkFlagRequired("decision")
}
