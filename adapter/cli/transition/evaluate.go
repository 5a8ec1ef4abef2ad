package transition

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

var (
	evaluateFrom      string
	evaluateTo        string
	evaluateCondition string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <project-id>",
	Short: "Evaluate a stage transition",
	Long: `Run the transition gate for a stage edge and print the decision.
The printed decision ID is what the commit command consumes.

Examples:
  stagegate transition evaluate 6b1e... --from 9c2a... --to 1f4d...
  stagegate transition evaluate 6b1e... --from 9c2a... --to 1f4d... --condition 7a91...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Gate == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %w", err)
		}
		fromID, err := uuid.Parse(evaluateFrom)
		if err != nil {
			return fmt.Errorf("invalid --from stage id: %w", err)
		}
		toID, err := uuid.Parse(evaluateTo)
		if err != nil {
			return fmt.Errorf("invalid --to stage id: %w", err)
		}

		request := domain.TransitionRequest{
			ProjectID:   projectID,
			FromStageID: fromID,
			ToStageID:   toID,
		}

		if evaluateCondition != "" {
			conditionID, err := uuid.Parse(evaluateCondition)
			if err != nil {
				return fmt.Errorf("invalid --condition id: %w", err)
			}
			result, err := app.Gate.EvaluateCondition(cmd.Context(), request, conditionID)
			if err != nil {
				return fmt.Errorf("failed to evaluate condition: %w", err)
			}
			printResult(result)
			return nil
		}

		decision, err := app.Gate.Evaluate(cmd.Context(), request)
		if err != nil {
			return fmt.Errorf("failed to evaluate transition: %w", err)
		}

		verdict := "NOT ADMISSIBLE"
		if decision.Admissible {
			verdict = "ADMISSIBLE"
		}
		fmt.Printf("Decision %s: %s\n\n", decision.ID, verdict)
		for _, result := range decision.Results {
			printResult(result)
		}
		if decision.Admissible {
			fmt.Printf("\nCommit with:\n  stagegate transition commit %s --from %s --to %s --decision %s\n",
				projectID, fromID, toID, decision.ID)
		}
		return nil
	},
}

func printResult(result domain.ConditionResult) {
	icon := "FAIL"
	if result.Passed() {
		icon = "PASS"
	}
	kind := "advisory"
	if result.Required {
		kind = "required"
	}
	fmt.Printf("[%s] %s (%s, %s)\n", icon, result.Name, result.Type, kind)
	if result.Message != "" {
		fmt.Printf("       %s\n", result.Message)
	}
	if result.Indeterminate {
		fmt.Println("       check could not run")
	}
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateFrom, "from", "", "outgoing stage id (required)")
	evaluateCmd.Flags().StringVar(&evaluateTo, "to", "", "incoming stage id (required)")
	evaluateCmd.Flags().StringVar(&evaluateCondition, "condition", "", "re-evaluate a single condition")
	_ = evaluateCmd.MarkFlagRequired("from")
	_ = evaluateCmd.MarkFlagRequired("to")
}
