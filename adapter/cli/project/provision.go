package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/commands"
)

var (
	provisionStages    []string
	provisionDurations []string
)

var provisionCmd = &cobra.Command{
	Use:   "provision <project-id>",
	Short: "Provision a project's stage sequence",
	Long: `Create the ordered stage sequence for a project. Without --stage flags
the standard five-stage lifecycle is used (Discovery, Definition,
Development, Validation, Launch). The first stage starts immediately.

Examples:
  stagegate project provision 6b1e...
  stagegate project provision 6b1e... --stage Alpha --stage Beta --stage GA`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ProvisionStagesHandler == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id: %w", err)
		}

		var templates []commands.StageTemplate
		for i, name := range provisionStages {
			tmpl := commands.StageTemplate{Name: strings.TrimSpace(name)}
			if i < len(provisionDurations) {
				d, err := time.ParseDuration(provisionDurations[i])
				if err != nil {
					return fmt.Errorf("invalid --duration %q: %w", provisionDurations[i], err)
				}
				tmpl.EstimatedDuration = d
			}
			templates = append(templates, tmpl)
		}

		result, err := app.ProvisionStagesHandler.Handle(cmd.Context(), commands.ProvisionStagesCommand{
			ProjectID: projectID,
			Stages:    templates,
		})
		if err != nil {
			return fmt.Errorf("failed to provision stages: %w", err)
		}

		fmt.Printf("Provisioned %d stages for project %s:\n", len(result.StageIDs), projectID)
		for i, id := range result.StageIDs {
			fmt.Printf("  %d. %s\n", i+1, id)
		}
		return nil
	},
}

func init() {
	provisionCmd.Flags().StringArrayVar(&provisionStages, "stage", nil, "stage name, repeatable, in order (default: standard lifecycle)")
	provisionCmd.Flags().StringArrayVar(&provisionDurations, "duration", nil, "estimated duration per --stage, repeatable (e.g. 336h)")
}
