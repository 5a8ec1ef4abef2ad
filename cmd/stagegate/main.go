package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/stagegate/adapter/cli"
	cliCondition "github.com/felixgeelhaar/stagegate/adapter/cli/condition"
	cliProject "github.com/felixgeelhaar/stagegate/adapter/cli/project"
	cliStage "github.com/felixgeelhaar/stagegate/adapter/cli/stage"
	cliTransition "github.com/felixgeelhaar/stagegate/adapter/cli/transition"
	"github.com/felixgeelhaar/stagegate/internal/app"
	"github.com/felixgeelhaar/stagegate/pkg/config"
	"github.com/felixgeelhaar/stagegate/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config, using development defaults", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}

	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()

		if cfg.OutboxProcessorEnabled {
			if err := container.OutboxProcessor.Start(ctx); err != nil {
				logger.Warn("failed to start outbox processor", "error", err)
			}
		}

		cli.SetApp(&cli.App{
			Gate:                        container.Gate,
			ProvisionStagesHandler:      container.ProvisionStagesHandler,
			CommitTransitionHandler:     container.CommitTransitionHandler,
			BlockStageHandler:           container.BlockStageHandler,
			UnblockStageHandler:         container.UnblockStageHandler,
			UpdateStageHandler:          container.UpdateStageHandler,
			ReorderStagesHandler:        container.ReorderStagesHandler,
			DeleteStageHandler:          container.DeleteStageHandler,
			AddConditionHandler:         container.AddConditionHandler,
			DeleteConditionHandler:      container.DeleteConditionHandler,
			GetStageGraphHandler:        container.GetStageGraphHandler,
			GetTransitionHistoryHandler: container.GetTransitionHistoryHandler,
		})
	}

	cli.AddCommand(cliProject.Cmd)
	cli.AddCommand(cliStage.Cmd)
	cli.AddCommand(cliCondition.Cmd)
	cli.AddCommand(cliTransition.Cmd)

	cli.ExecuteContext(ctx)
}
