package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/stagegate/adapter/api"
	appcontainer "github.com/felixgeelhaar/stagegate/internal/app"
	"github.com/felixgeelhaar/stagegate/pkg/config"
	"github.com/felixgeelhaar/stagegate/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the StageGate HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if logger == nil {
			logger = observability.LoggerFromEnv()
		}

		container, err := appcontainer.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		if cfg.OutboxProcessorEnabled {
			if err := container.OutboxProcessor.Start(ctx); err != nil {
				return err
			}
		}

		handler := api.NewTransitionHandler(api.TransitionHandlerConfig{
			Gate:            container.Gate,
			CommitHandler:   container.CommitTransitionHandler,
			StageGraphQuery: container.GetStageGraphHandler,
			HistoryQuery:    container.GetTransitionHistoryHandler,
			Logger:          logger,
		})

		serverConfig := api.DefaultServerConfig()
		serverConfig.Addr = cfg.HTTPAddr
		serverConfig.ReadTimeout = cfg.HTTPReadTimeout
		serverConfig.WriteTimeout = cfg.HTTPWriteTimeout
		server := api.NewServer(serverConfig, handler, container.Health, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
