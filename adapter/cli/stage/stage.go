// Package stage contains the stage command group.
package stage

import (
	"github.com/spf13/cobra"
)

// Cmd is the stage command group.
var Cmd = &cobra.Command{
	Use:   "stage",
	Short: "Manage project stages",
	Long:  `List, edit, block, unblock, and delete the stages of a project.`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(blockCmd)
	Cmd.AddCommand(unblockCmd)
	Cmd.AddCommand(deleteCmd)
}
