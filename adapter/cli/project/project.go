// Package project contains the project CLI commands.
package project

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for project operations.
var Cmd = &cobra.Command{
	Use:   "project",
	Short: "Manage project lifecycles",
	Long:  `Provision stage sequences for projects and inspect their state.`,
}

func init() {
	Cmd.AddCommand(provisionCmd)
}
