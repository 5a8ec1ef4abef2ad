// Package app wires the StageGate dependency graph.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/stagegate/internal/gatecheck/builtin"
	"github.com/felixgeelhaar/stagegate/internal/gatecheck/providers"
	"github.com/felixgeelhaar/stagegate/internal/gatecheck/registry"
	"github.com/felixgeelhaar/stagegate/internal/gatecheck/runtime"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/commands"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/queries"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/services"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/infrastructure/cache"
	lifecyclePersistence "github.com/felixgeelhaar/stagegate/internal/lifecycle/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/stagegate/internal/shared/application"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/stagegate/pkg/config"
	"github.com/felixgeelhaar/stagegate/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics

	// Database
	DBDriver database.Driver
	PGPool   *pgxpool.Pool
	SQLiteDB *sql.DB

	// Repositories
	StageRepo     domain.StageRepository
	ConditionRepo domain.ConditionRepository
	HistoryRepo   domain.HistoryRepository
	OutboxRepo    outbox.Repository

	// Decision store
	DecisionStore services.DecisionStore
	redisStore    *cache.RedisDecisionStore

	// Messaging
	EventPublisher  eventbus.Publisher
	OutboxProcessor *outbox.Processor

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Condition checking
	Tracker  *providers.ManualTracker
	Registry *registry.Registry
	Executor *runtime.Executor
	Gate     *services.TransitionGate

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

	// Health
	Health *observability.HealthRegistry
}

// NewContainer creates and wires all application dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	if err := c.initDatabase(ctx, cfg); err != nil {
		return nil, err
	}
	if err := c.initDecisionStore(ctx, cfg); err != nil {
		c.Close()
		return nil, err
	}
	c.initMessaging(cfg)
	c.initGate(cfg)
	c.initHandlers()
	c.initHealth()

	logger.Info("container initialized",
		"driver", c.DBDriver,
		"redis", cfg.RedisURL != "",
		"rabbitmq", cfg.RabbitMQURL != "",
	)
	return c, nil
}

func (c *Container) initDatabase(ctx context.Context, cfg *config.Config) error {
	c.DBDriver = database.DetectDriver(cfg.DatabaseURL)

	switch c.DBDriver {
	case database.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
			db.Close()
			return fmt.Errorf("failed to run sqlite migrations: %w", err)
		}
		c.SQLiteDB = db
		c.UnitOfWork = sharedPersistence.NewSQLiteUnitOfWork(db)
		c.StageRepo = lifecyclePersistence.NewSQLiteStageRepository(db)
		c.ConditionRepo = lifecyclePersistence.NewSQLiteConditionRepository(db)
		c.HistoryRepo = lifecyclePersistence.NewSQLiteHistoryRepository(db)
		c.OutboxRepo = outbox.NewSQLiteRepository(db)

	case database.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, 10)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return fmt.Errorf("failed to run postgres migrations: %w", err)
		}
		c.PGPool = pool
		c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)
		c.StageRepo = lifecyclePersistence.NewPostgresStageRepository(pool)
		c.ConditionRepo = lifecyclePersistence.NewPostgresConditionRepository(pool)
		c.HistoryRepo = lifecyclePersistence.NewPostgresHistoryRepository(pool)
		c.OutboxRepo = outbox.NewPostgresRepository(pool)

	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	return nil
}

func (c *Container) initDecisionStore(ctx context.Context, cfg *config.Config) error {
	if cfg.RedisURL == "" {
		c.DecisionStore = cache.NewMemoryDecisionStore()
		return nil
	}

	store, err := cache.NewRedisDecisionStore(ctx, cfg.RedisURL)
	if err != nil {
		if cfg.IsDevelopment() {
			c.Logger.Warn("redis not available, using in-memory decision store", "error", err)
			c.DecisionStore = cache.NewMemoryDecisionStore()
			return nil
		}
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.redisStore = store
	c.DecisionStore = store
	return nil
}

func (c *Container) initMessaging(cfg *config.Config) {
	if cfg.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger)
		if err == nil {
			c.EventPublisher = publisher
		} else if cfg.IsDevelopment() {
			c.Logger.Warn("RabbitMQ not available, using in-process event bus", "error", err)
		} else {
			c.Logger.Error("failed to connect to RabbitMQ, using in-process event bus", "error", err)
		}
	}
	if c.EventPublisher == nil {
		c.EventPublisher = eventbus.NewInProcessEventBus(c.Logger)
	}

	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}, c.Logger)
}

func (c *Container) initGate(cfg *config.Config) {
	c.Tracker = providers.NewManualTracker()
	c.Registry = registry.NewRegistry(c.Logger)

	evaluators := []error{
		c.Registry.Register(builtin.NewTaskCompletionEvaluator(c.Tracker)),
		c.Registry.Register(builtin.NewDataQualityEvaluator(c.Tracker)),
		c.Registry.Register(builtin.NewApprovalEvaluator(c.Tracker)),
		c.Registry.Register(builtin.NewDocumentEvaluator(c.Tracker)),
		c.Registry.Register(builtin.NewCustomEvaluator(c.Registry)),
	}
	for _, err := range evaluators {
		if err != nil {
			c.Logger.Error("failed to register evaluator", "error", err)
		}
	}

	executorConfig := runtime.DefaultExecutorConfig()
	executorConfig.CircuitBreakerEnabled = cfg.BreakerEnabled
	executorConfig.FailureThreshold = cfg.BreakerFailureThreshold
	executorConfig.Timeout = cfg.BreakerOpenTimeout
	executorConfig.EvaluationTimeout = cfg.EvaluatorTimeout
	c.Executor = runtime.NewExecutor(c.Registry, c.Metrics, c.Logger, executorConfig)

	c.Gate = services.NewTransitionGate(
		c.StageRepo,
		c.ConditionRepo,
		c.Executor,
		c.DecisionStore,
		services.GateConfig{
			DecisionFreshness: cfg.DecisionFreshness,
			CacheTTLDefault:   cfg.CacheTTLDefault,
		},
		c.Logger,
		c.Metrics,
	)
}

func (c *Container) initHandlers() {
	c.ProvisionStagesHandler = commands.NewProvisionStagesHandler(c.StageRepo, c.ConditionRepo, c.UnitOfWork, c.Logger)
	c.CommitTransitionHandler = commands.NewCommitTransitionHandler(
		c.StageRepo, c.HistoryRepo, c.OutboxRepo, c.DecisionStore, c.UnitOfWork, c.Logger, c.Metrics)
	c.BlockStageHandler = commands.NewBlockStageHandler(c.StageRepo, c.OutboxRepo, c.UnitOfWork, c.Logger)
	c.UnblockStageHandler = commands.NewUnblockStageHandler(c.StageRepo, c.OutboxRepo, c.UnitOfWork, c.Logger)
	c.UpdateStageHandler = commands.NewUpdateStageHandler(c.StageRepo, c.UnitOfWork)
	c.ReorderStagesHandler = commands.NewReorderStagesHandler(c.StageRepo, c.UnitOfWork)
	c.DeleteStageHandler = commands.NewDeleteStageHandler(c.StageRepo, c.HistoryRepo, c.UnitOfWork, c.Logger)
	c.AddConditionHandler = commands.NewAddConditionHandler(c.StageRepo, c.ConditionRepo, c.UnitOfWork)
	c.DeleteConditionHandler = commands.NewDeleteConditionHandler(c.ConditionRepo, c.UnitOfWork)

	c.GetStageGraphHandler = queries.NewGetStageGraphHandler(c.StageRepo)
	c.GetTransitionHistoryHandler = queries.NewGetTransitionHistoryHandler(c.HistoryRepo)
}

func (c *Container) initHealth() {
	switch c.DBDriver {
	case database.DriverSQLite:
		db := c.SQLiteDB
		c.Health.Register("database", func(ctx context.Context) observability.HealthCheckResult {
			start := time.Now()
			if err := db.PingContext(ctx); err != nil {
				return observability.HealthCheckResult{
					Status:    observability.HealthStatusUnhealthy,
					Message:   err.Error(),
					Duration:  time.Since(start),
					Timestamp: time.Now().UTC(),
				}
			}
			return observability.HealthCheckResult{
				Status:    observability.HealthStatusHealthy,
				Duration:  time.Since(start),
				Timestamp: time.Now().UTC(),
			}
		})
	case database.DriverPostgres:
		pool := c.PGPool
		c.Health.Register("database", func(ctx context.Context) observability.HealthCheckResult {
			start := time.Now()
			if err := pool.Ping(ctx); err != nil {
				return observability.HealthCheckResult{
					Status:    observability.HealthStatusUnhealthy,
					Message:   err.Error(),
					Duration:  time.Since(start),
					Timestamp: time.Now().UTC(),
				}
			}
			return observability.HealthCheckResult{
				Status:    observability.HealthStatusHealthy,
				Duration:  time.Since(start),
				Timestamp: time.Now().UTC(),
			}
		})
	}

	if c.redisStore != nil {
		store := c.redisStore
		c.Health.Register("redis", func(ctx context.Context) observability.HealthCheckResult {
			start := time.Now()
			if err := store.Ping(ctx); err != nil {
				return observability.HealthCheckResult{
					Status:    observability.HealthStatusDegraded,
					Message:   err.Error(),
					Duration:  time.Since(start),
					Timestamp: time.Now().UTC(),
				}
			}
			return observability.HealthCheckResult{
				Status:    observability.HealthStatusHealthy,
				Duration:  time.Since(start),
				Timestamp: time.Now().UTC(),
			}
		})
	}
}

// Close releases all container resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil && c.OutboxProcessor.IsRunning() {
		c.OutboxProcessor.Stop()
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("failed to close event publisher", "error", err)
		}
	}
	if c.redisStore != nil {
		if err := c.redisStore.Close(); err != nil {
			c.Logger.Warn("failed to close redis client", "error", err)
		}
	}
	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			c.Logger.Warn("failed to close sqlite database", "error", err)
		}
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
}
