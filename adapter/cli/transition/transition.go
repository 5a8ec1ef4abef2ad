// Package transition contains the transition command group.
package transition

import (
	"github.com/spf13/cobra"
)

// Cmd is the transition command group.
var Cmd = &cobra.Command{
	Use:   "transition",
	Short: "Evaluate and commit stage transitions",
	Long: `Evaluate whether a stage transition is admissible, commit an
admissible transition, and inspect the transition history.`,
}

func init() {
	Cmd.AddCommand(evaluateCmd)
	Cmd.AddCommand(commitCmd)
	Cmd.AddCommand(historyCmd)
}
