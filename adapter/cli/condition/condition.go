// Package condition contains the transition condition CLI commands.
package condition

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for condition operations.
var Cmd = &cobra.Command{
	Use:   "condition",
	Short: "Manage transition conditions",
	Long:  `Bind conditions to stage edges and remove them again.`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(removeCmd)
}
