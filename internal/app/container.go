// Package app wires configuration, storage, connectors and handlers into one
// dependency container.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/oauth2"

	"github.com/airrdigital/taskmatrix/adapter/api"
	"github.com/airrdigital/taskmatrix/internal/connector"
	airtableConnector "github.com/airrdigital/taskmatrix/internal/connector/airtable"
	slackConnector "github.com/airrdigital/taskmatrix/internal/connector/slack"
	"github.com/airrdigital/taskmatrix/internal/matrix/application/commands"
	"github.com/airrdigital/taskmatrix/internal/matrix/application/queries"
	"github.com/airrdigital/taskmatrix/internal/matrix/application/services"
	"github.com/airrdigital/taskmatrix/internal/matrix/domain"
	"github.com/airrdigital/taskmatrix/internal/matrix/infrastructure/persistence"
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/database"
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/database/migrations"
	_ "github.com/airrdigital/taskmatrix/internal/shared/infrastructure/database/postgres" // Register Postgres driver
	_ "github.com/airrdigital/taskmatrix/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/airrdigital/taskmatrix/internal/shared/infrastructure/eventbus"
	"github.com/airrdigital/taskmatrix/pkg/config"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage
	DBConn   database.Connection
	TaskRepo domain.Repository

	// Optional infrastructure
	RedisClient    *redis.Client
	EventPublisher eventbus.Publisher

	// Connectors
	SlackConnector    connector.Connector
	AirtableConnector connector.Connector

	// Command handlers
	CreateTask  *commands.CreateTaskHandler
	UpdateTask  *commands.UpdateTaskHandler
	DeleteTask  *commands.DeleteTaskHandler
	BulkCreate  *commands.BulkCreateHandler
	ImportTasks *commands.ImportTasksHandler

	// Query handlers
	ListTasks *queries.ListTasksHandler

	// API
	APIServer *api.Server
}

// NewContainer builds the full dependency graph. The durable store is chosen
// once here and passed down as an explicit dependency.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{Config: cfg, Logger: logger}

	if err := c.setupDatabase(ctx); err != nil {
		return nil, err
	}
	c.setupRedis(ctx)
	c.setupEventBus()
	c.setupConnectors(ctx)
	c.setupHandlers()

	return c, nil
}

// setupDatabase negotiates the store: Postgres when DATABASE_URL is set,
// local SQLite otherwise. Missing configuration in production is a
// descriptive error, not a silent fallback.
func (c *Container) setupDatabase(ctx context.Context) error {
	cfg := c.Config

	if cfg.DatabaseURL != "" {
		conn, err := database.NewConnection(ctx, database.Config{
			Driver: database.DriverPostgres,
			URL:    cfg.DatabaseURL,
		})
		if err != nil {
			if cfg.IsProduction() {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			c.Logger.Warn("database unreachable, falling back to local SQLite",
				slog.String("error", err.Error()))
		} else {
			c.DBConn = conn
			c.TaskRepo = persistence.NewPostgresTaskRepository(conn)
			c.Logger.Info("using PostgreSQL store")
			return nil
		}
	} else if cfg.IsProduction() {
		return fmt.Errorf("DATABASE_URL is required in production")
	}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("failed to open SQLite store: %w", err)
	}

	sqlDB, ok := conn.(interface{ DB() *sql.DB })
	if !ok {
		conn.Close()
		return fmt.Errorf("sqlite connection does not expose its database handle")
	}
	if err := migrations.RunSQLiteMigrations(ctx, sqlDB.DB()); err != nil {
		conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.DBConn = conn
	c.TaskRepo = persistence.NewSQLiteTaskRepository(conn)
	c.Logger.Info("using local SQLite store")
	return nil
}

// setupRedis connects the optional user-directory cache. Failures degrade to
// no caching.
func (c *Container) setupRedis(ctx context.Context) {
	if c.Config.RedisURL == "" {
		return
	}

	opts, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		c.Logger.Warn("invalid REDIS_URL, continuing without cache", slog.String("error", err.Error()))
		return
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		c.Logger.Warn("redis unreachable, continuing without cache", slog.String("error", err.Error()))
		client.Close()
		return
	}

	c.RedisClient = client
	c.Logger.Info("redis cache connected")
}

// setupEventBus picks RabbitMQ when configured, otherwise the in-process bus.
func (c *Container) setupEventBus() {
	if c.Config.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
		if err == nil {
			c.EventPublisher = publisher
			return
		}
		c.Logger.Warn("rabbitmq unreachable, using in-process event bus",
			slog.String("error", err.Error()))
	}
	c.EventPublisher = eventbus.NewInProcessBus(c.Logger)
}

func (c *Container) setupConnectors(ctx context.Context) {
	cfg := c.Config

	slackHTTP := connector.NewBreakerClient("slack",
		bearerClient(ctx, cfg.SlackToken), c.Logger)
	c.SlackConnector = slackConnector.New(slackConnector.Config{
		Token:     cfg.SlackToken,
		Workspace: cfg.SlackWorkspace,
		Lookback:  cfg.SlackLookback,
		PageLimit: cfg.SlackPageLimit,
	}, slackHTTP, slackConnector.NewUserCache(c.RedisClient, cfg.RedisUserTTL, c.Logger), c.Logger)

	airtableHTTP := connector.NewBreakerClient("airtable",
		bearerClient(ctx, cfg.AirtableAPIKey), c.Logger)
	c.AirtableConnector = airtableConnector.New(airtableConnector.Config{
		APIKey:        cfg.AirtableAPIKey,
		BaseID:        cfg.AirtableBaseID,
		TableName:     cfg.AirtableTableName,
		AssigneeField: cfg.AirtableAssigneeField,
		AssigneeValue: cfg.AirtableAssigneeValue,
	}, airtableHTTP, c.Logger)
}

func (c *Container) setupHandlers() {
	cfg := c.Config

	var completer services.ChatCompleter
	if cfg.OpenAIAPIKey != "" {
		completer = openai.NewClient(cfg.OpenAIAPIKey)
	}
	enricher := services.NewEnricher(completer, cfg.OpenAIModel, c.Logger)

	c.CreateTask = commands.NewCreateTaskHandler(c.TaskRepo, c.EventPublisher, c.Logger)
	c.UpdateTask = commands.NewUpdateTaskHandler(c.TaskRepo, c.EventPublisher, c.Logger)
	c.DeleteTask = commands.NewDeleteTaskHandler(c.TaskRepo, c.Logger)
	c.BulkCreate = commands.NewBulkCreateHandler(c.TaskRepo, c.Logger)
	c.ImportTasks = commands.NewImportTasksHandler(
		c.TaskRepo, services.NewDeduplicator(), enricher, c.EventPublisher,
		cfg.SlackWorkspace, c.Logger)
	c.ListTasks = queries.NewListTasksHandler(c.TaskRepo)

	taskHandler := api.NewTaskHandler(api.TaskHandlerConfig{
		Create: c.CreateTask,
		Update: c.UpdateTask,
		Delete: c.DeleteTask,
		Bulk:   c.BulkCreate,
		List:   c.ListTasks,
		Logger: c.Logger,
	})
	importHandler := api.NewImportHandler(c.ImportTasks, c.SlackConnector, c.AirtableConnector, c.Logger)

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.APIAddr
	c.APIServer = api.NewServer(serverCfg, taskHandler, importHandler, c.Logger)
}

// bearerClient builds an HTTP client that attaches the token to every
// request. An empty token still yields a usable client; the connector fails
// fast on its own credential check before any call.
func bearerClient(ctx context.Context, token string) connector.Doer {
	if token == "" {
		return nil
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

// Close releases all held resources.
func (c *Container) Close() error {
	var firstErr error

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
