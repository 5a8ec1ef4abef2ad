package cli

import (
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/commands"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/queries"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/services"
)

// App holds the CLI application dependencies.
type App struct {
	// Gate
	Gate *services.TransitionGate

	// Command handlers
	ProvisionStagesHandler  *commands.ProvisionStagesHandler
	CommitTransitionHandler *commands.CommitTransitionHandler
	BlockStageHandler       *commands.BlockStageHandler
	UnblockStageHandler     *commands.UnblockStageHandler
	UpdateStageHandler      *commands.UpdateStageHandler
	ReorderStagesHandler    *commands.ReorderStagesHandler
	DeleteStageHandler      *commands.DeleteStageHandler
	AddConditionHandler     *commands.AddConditionHandler
	DeleteConditionHandler  *commands.DeleteConditionHandler

	// Query handlers
	GetStageGraphHandler        *queries.GetStageGraphHandler
	GetTransitionHistoryHandler *queries.GetTransitionHistoryHandler
}

var app *App

// SetApp sets the CLI application dependencies.
func SetApp(a *App) {
	app = a
}

// GetApp returns the CLI application dependencies.
func GetApp() *App {
	return app
}
