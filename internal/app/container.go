package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	projectCommands "github.com/fieldscale/takt/internal/project/application/commands"
	projectQueries "github.com/fieldscale/takt/internal/project/application/queries"
	projectDomain "github.com/fieldscale/takt/internal/project/domain"
	projectPersistence "github.com/fieldscale/takt/internal/project/infrastructure/persistence"
	publishingApp "github.com/fieldscale/takt/internal/publishing/application"
	publishingCalDAV "github.com/fieldscale/takt/internal/publishing/infrastructure/caldav"
	"github.com/fieldscale/takt/internal/publishing/infrastructure/ics"
	scheduleCommands "github.com/fieldscale/takt/internal/scheduling/application/commands"
	scheduleQueries "github.com/fieldscale/takt/internal/scheduling/application/queries"
	schedulerServices "github.com/fieldscale/takt/internal/scheduling/application/services"
	schedulingDomain "github.com/fieldscale/takt/internal/scheduling/domain"
	planCache "github.com/fieldscale/takt/internal/scheduling/infrastructure/cache"
	schedulePersistence "github.com/fieldscale/takt/internal/scheduling/infrastructure/persistence"
	sharedApplication "github.com/fieldscale/takt/internal/shared/application"
	"github.com/fieldscale/takt/internal/shared/infrastructure/database"
	_ "github.com/fieldscale/takt/internal/shared/infrastructure/database/sqlite" // Register SQLite driver
	"github.com/fieldscale/takt/internal/shared/infrastructure/eventbus"
	"github.com/fieldscale/takt/internal/shared/infrastructure/migrations"
	"github.com/fieldscale/takt/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/fieldscale/takt/internal/shared/infrastructure/persistence"
	"github.com/fieldscale/takt/pkg/config"
	"github.com/fieldscale/takt/pkg/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics

	// Database
	DB       *pgxpool.Pool
	DBConn   database.Connection // Abstract connection for driver-agnostic access
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Repositories (use interfaces for driver-agnostic access)
	ProjectRepo projectDomain.Repository
	PlanRepo    schedulingDomain.PlanRepository
	OutboxRepo  outbox.Repository

	// Publishers
	EventPublisher eventbus.Publisher

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Plan read cache (nil when Redis is unavailable or disabled)
	PlanCache *planCache.RedisPlanCache

	// Scheduling engine
	Engine *schedulerServices.Engine

	// Project command handlers
	ImportProjectHandler   *projectCommands.ImportProjectHandler
	ValidateProjectHandler *projectCommands.ValidateProjectHandler
	DeleteProjectHandler   *projectCommands.DeleteProjectHandler

	// Project query handlers
	ListProjectsHandler *projectQueries.ListProjectsHandler
	GetProjectHandler   *projectQueries.GetProjectHandler

	// Plan command handlers
	RunPlanHandler     *scheduleCommands.RunPlanHandler
	PreviewPlanHandler *scheduleCommands.PreviewPlanHandler

	// Plan query handlers
	GetLatestPlanHandler   *scheduleQueries.GetLatestPlanHandler
	GetCriticalPathHandler *scheduleQueries.GetCriticalPathHandler

	// Calendar publishing (nil unless CALDAV_ENDPOINT is configured)
	Publisher publishingApp.Publisher
	Exporter  *ics.Exporter

	// Health checks
	Health *observability.HealthRegistry

	// Outbox Processor
	OutboxProcessor *outbox.Processor
}

// NewContainer creates and wires all dependencies for server mode
// (PostgreSQL, Redis, RabbitMQ).
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
	}

	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c.DB = pool
	c.DBDriver = database.DriverPostgres
	logger.Info("connected to database")

	// Connect to Redis (optional in development)
	if cfg.RedisURL != "" && !cfg.CacheDisabled {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			if !cfg.IsDevelopment() {
				pool.Close()
				return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
			}
			logger.Warn("invalid Redis URL, plan reads will skip the cache", "error", err)
		} else {
			redisClient := redis.NewClient(opt)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				if !cfg.IsDevelopment() {
					pool.Close()
					return nil, fmt.Errorf("failed to connect to Redis: %w", err)
				}
				logger.Warn("Redis not available, plan reads will skip the cache", "error", err)
			} else {
				c.RedisClient = redisClient
				logger.Info("connected to Redis")
			}
		}
	}

	// Create repositories
	c.ProjectRepo = projectPersistence.NewPostgresProjectRepository(pool)
	c.PlanRepo = schedulePersistence.NewPostgresPlanRepository(pool)
	c.OutboxRepo = outbox.NewPostgresRepository(pool)
	c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)

	// Create event publisher
	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		// Fall back to noop publisher in development
		if cfg.IsDevelopment() {
			logger.Warn("RabbitMQ not available, using noop publisher")
			c.EventPublisher = eventbus.NewNoopPublisher(logger)
		} else {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
	} else {
		c.EventPublisher = publisher
	}

	// Create plan cache
	if c.RedisClient != nil {
		c.PlanCache = planCache.NewRedisPlanCache(c.RedisClient, cfg.PlanCacheTTL)
	}

	c.wireApplication(logger)

	// Register health checks for everything actually wired
	c.Health = observability.NewHealthRegistry()
	c.Health.Register("database", observability.DatabaseHealthChecker(pool.Ping))
	if c.RedisClient != nil {
		c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}))
	}
	if rmq, ok := c.EventPublisher.(*eventbus.RabbitMQPublisher); ok {
		c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(rmq.Ping))
	}

	// Create outbox processor
	processorConfig := outbox.ProcessorConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorConfig, logger)

	return c, nil
}

// NewLocalContainer creates a container for local mode with SQLite.
// This provides zero-config operation without requiring PostgreSQL,
// Redis, or RabbitMQ.
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
	}

	// Initialize SQLite database
	conn, err := initSQLiteConnection(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	// Create repository factory
	factory := NewRepositoryFactory(conn)

	// Create repositories using factory
	projectRepo, err := factory.ProjectRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to create project repository: %w", err)
	}
	c.ProjectRepo = projectRepo

	planRepo, err := factory.PlanRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to create plan repository: %w", err)
	}
	c.PlanRepo = planRepo

	outboxRepo, err := factory.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox repository: %w", err)
	}
	c.OutboxRepo = outboxRepo

	// Use noop publisher for local mode (no RabbitMQ)
	c.EventPublisher = eventbus.NewNoopPublisher(logger)

	// Create unit of work for SQLite
	c.UnitOfWork = sharedPersistence.NewSQLiteUnitOfWork(conn.DB())

	c.wireApplication(logger)

	c.Health = observability.NewHealthRegistry()
	c.Health.Register("database", observability.DatabaseHealthChecker(conn.Ping))

	// Local mode has no broker, but the processor still drains the
	// outbox table so it does not grow without bound.
	processorConfig := outbox.ProcessorConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorConfig, logger)

	// Store connection for Close
	c.DBConn = conn
	c.DBDriver = database.DriverSQLite

	logger.Info("local mode container initialized",
		"database", cfg.SQLitePath,
		"driver", "sqlite",
	)

	return c, nil
}

// NewDevelopmentContainer creates a container for local development
// without external services.
func NewDevelopmentContainer(logger *slog.Logger) *Container {
	c := &Container{
		Config:  &config.Config{AppEnv: "development"},
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
	}

	// Use in-memory repositories
	c.OutboxRepo = outbox.NewInMemoryRepository()
	c.EventPublisher = eventbus.NewNoopPublisher(logger)

	// Note: ProjectRepo and PlanRepo require a database connection.
	// This container is useful for testing CLI structure without DB.

	return c
}

// wireApplication creates the scheduling engine, the handlers and the
// publishing adapters. Repositories, unit of work and the optional plan
// cache must already be set.
func (c *Container) wireApplication(logger *slog.Logger) {
	cfg := c.Config

	// The nil checks keep a typed nil out of the handler interfaces.
	var (
		runInvalidator    scheduleCommands.PlanInvalidator
		deleteInvalidator projectCommands.PlanInvalidator
		queryCache        scheduleQueries.PlanCache
	)
	if c.PlanCache != nil {
		runInvalidator = c.PlanCache
		deleteInvalidator = c.PlanCache
		queryCache = c.PlanCache
	}

	// Create scheduling engine
	c.Engine = schedulerServices.NewEngine(engineConfig(cfg), logger, c.Metrics)

	// Create project command handlers
	c.ImportProjectHandler = projectCommands.NewImportProjectHandler(c.ProjectRepo, c.OutboxRepo, c.UnitOfWork, c.Metrics)
	c.ValidateProjectHandler = projectCommands.NewValidateProjectHandler(logger)
	c.DeleteProjectHandler = projectCommands.NewDeleteProjectHandler(c.ProjectRepo, c.PlanRepo, c.UnitOfWork, deleteInvalidator)

	// Create project query handlers
	c.ListProjectsHandler = projectQueries.NewListProjectsHandler(c.ProjectRepo)
	c.GetProjectHandler = projectQueries.NewGetProjectHandler(c.ProjectRepo)

	// Create plan command handlers
	c.RunPlanHandler = scheduleCommands.NewRunPlanHandler(c.ProjectRepo, c.PlanRepo, c.Engine, c.OutboxRepo, c.UnitOfWork, runInvalidator, logger)
	c.PreviewPlanHandler = scheduleCommands.NewPreviewPlanHandler(c.Engine, logger)

	// Create plan query handlers
	c.GetLatestPlanHandler = scheduleQueries.NewGetLatestPlanHandler(c.PlanRepo, queryCache, c.Metrics, logger)
	c.GetCriticalPathHandler = scheduleQueries.NewGetCriticalPathHandler(c.PlanRepo, c.GetLatestPlanHandler)

	// Create calendar publisher if configured
	if cfg.CalDAVEndpoint != "" {
		c.Publisher = publishingCalDAV.NewPublisher(publishingCalDAV.Config{
			Endpoint:      cfg.CalDAVEndpoint,
			Username:      cfg.CalDAVUsername,
			Password:      cfg.CalDAVPassword,
			Calendar:      cfg.CalDAVCalendar,
			DeleteMissing: cfg.CalDAVDeleteMissing,
			Breaker:       publishingCalDAV.DefaultBreakerConfig(),
		}, c.Metrics, logger)
	}
	c.Exporter = ics.NewExporter()
}

// engineConfig maps configuration onto engine tunables, falling back to
// defaults for unset values.
func engineConfig(cfg *config.Config) schedulerServices.EngineConfig {
	ec := schedulerServices.DefaultEngineConfig()
	if cfg == nil {
		return ec
	}
	if cfg.EngineMaxAttempts > 0 {
		ec.MaxPlacementAttempts = cfg.EngineMaxAttempts
	}
	if cfg.EngineLegacyCap > 0 {
		ec.LegacyCrewCap = cfg.EngineLegacyCap
	}
	if cfg.EngineLearningRate > 0 {
		ec.FloorLearningRate = cfg.EngineLearningRate
	}
	return ec
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("PostgreSQL connection closed")
	}

	// Close SQLite connection if using local mode
	if c.DBConn != nil && c.DBDriver == database.DriverSQLite {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing SQLite connection", "error", err)
		} else {
			c.Logger.Info("SQLite connection closed")
		}
	}
}

// sqliteConnection is a type that implements database.Connection and exposes DB()
type sqliteConnection interface {
	database.Connection
	DB() *sql.DB
}

// initSQLiteConnection initializes the SQLite database connection with auto-migration.
func initSQLiteConnection(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sqliteConnection, error) {
	// Create SQLite connection
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite connection: %w", err)
	}

	// Type assert to get SQLite-specific connection with DB() method
	sqliteConn, ok := conn.(sqliteConnection)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("expected SQLite connection with DB() method, got %T", conn)
	}

	// Run auto-migrations for SQLite
	if err := runSQLiteMigrations(ctx, sqliteConn.DB(), logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return sqliteConn, nil
}

// runSQLiteMigrations applies SQLite schema migrations.
func runSQLiteMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.Info("running SQLite migrations")
	if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
		return err
	}
	logger.Info("SQLite migrations completed successfully")
	return nil
}
