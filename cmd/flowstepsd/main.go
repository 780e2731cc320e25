package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	flowsteps "github.com/goliatone/go-flowsteps"
	"github.com/goliatone/go-flowsteps/adapters/gocommand"
	"github.com/goliatone/go-flowsteps/adapters/gologger"
	"github.com/goliatone/go-flowsteps/core"
	flowmigrations "github.com/goliatone/go-flowsteps/migrations"
	"github.com/goliatone/go-flowsteps/providers/figma"
	sqlstore "github.com/goliatone/go-flowsteps/store/sql"
	"github.com/goliatone/go-flowsteps/transport/httpapi"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool                { return c.debug }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-flowsteps" }

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	provider, logger := gologger.Resolve("flowstepsd", nil, nil)

	addr := envOr("FLOWSTEPS_HTTP_ADDR", ":8080")
	driver := envOr("FLOWSTEPS_DB_DRIVER", "postgres")
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	var dialect schema.Dialect
	var migrationDialect string
	switch driver {
	case "postgres":
		dialect = pgdialect.New()
		migrationDialect = flowmigrations.DialectPostgres
	case "sqlite3":
		dialect = sqlitedialect.New()
		migrationDialect = flowmigrations.DialectSQLite
	default:
		logger.Error("unsupported database driver", "driver", driver)
		os.Exit(1)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}

	client, err := persistence.New(persistenceConfig{
		driver: driver,
		server: dsn,
		debug:  os.Getenv("FLOWSTEPS_DB_DEBUG") == "true",
	}, sqlDB, dialect)
	if err != nil {
		logger.Error("persistence client", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("close persistence client", "error", err.Error())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = flowmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != migrationDialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, flowmigrations.WithValidationTargets(migrationDialect))
	if err != nil {
		logger.Error("register migrations", "error", err.Error())
		os.Exit(1)
	}
	if err := client.Migrate(ctx); err != nil {
		logger.Error("apply migrations", "error", err.Error())
		os.Exit(1)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		logger.Error("repository factory", "error", err.Error())
		os.Exit(1)
	}

	svc, err := flowsteps.NewService(
		flowsteps.DefaultConfig(),
		flowsteps.WithLogger(logger),
		flowsteps.WithLoggerProvider(provider),
		flowsteps.WithPersistenceClient(client),
		flowsteps.WithRepositoryFactory(factory),
	)
	if err != nil {
		logger.Error("service setup", "error", err.Error())
		os.Exit(1)
	}

	figmaProvider, err := flowsteps.FigmaProvider(figma.Config{
		AuthURL:     os.Getenv("FIGMA_AUTH_URL"),
		TokenURL:    os.Getenv("FIGMA_TOKEN_URL"),
		ActivityURL: os.Getenv("FIGMA_ACTIVITY_URL"),
		Scope:       os.Getenv("FIGMA_SCOPE"),
	})
	if err != nil {
		logger.Error("figma provider", "error", err.Error())
		os.Exit(1)
	}
	if err := svc.RegisterProvider(figmaProvider); err != nil {
		logger.Error("register figma provider", "error", err.Error())
		os.Exit(1)
	}

	retention := core.StepLogRetentionPolicy{
		TTL:    envDuration("FLOWSTEPS_LOG_RETENTION_TTL"),
		RowCap: envInt("FLOWSTEPS_LOG_RETENTION_ROW_CAP"),
	}
	if retention.Enabled() {
		controller, err := core.NewStepLogRetentionController(
			factory.StepLogs(),
			retention,
			core.WithRetentionLogger(logger),
		)
		if err != nil {
			logger.Error("retention controller", "error", err.Error())
			os.Exit(1)
		}
		defer controller.Close()
	}

	facade, err := flowsteps.NewFacade(svc)
	if err != nil {
		logger.Error("facade setup", "error", err.Error())
		os.Exit(1)
	}
	subscriptions, err := subscribeCommandBus(facade)
	if err != nil {
		logger.Error("command bus setup", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		for _, subscription := range subscriptions {
			subscription.Unsubscribe()
		}
	}()

	serverOpts := []httpapi.Option{httpapi.WithLogger(logger)}
	if token := strings.TrimSpace(os.Getenv("FLOWSTEPS_API_TOKEN")); token != "" {
		serverOpts = append(serverOpts, httpapi.WithSessionResolver(bearerTokenResolver(token)))
	} else {
		logger.Info("FLOWSTEPS_API_TOKEN is not set, API routes are unauthenticated")
	}
	server, err := httpapi.New(svc, serverOpts...)
	if err != nil {
		logger.Error("http server setup", "error", err.Error())
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("http server stopped", "error", err.Error())
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			logger.Error("http server shutdown", "error", err.Error())
		}
	}
}

// subscribeCommandBus exposes every write operation and read query on the
// in-process dispatcher so embedding code can use message dispatch instead
// of direct service calls.
func subscribeCommandBus(facade *flowsteps.Facade) ([]commanddispatcher.Subscription, error) {
	adapter := gocommand.NewRegistryAdapter(nil)
	commands := facade.Commands()
	queries := facade.Queries()

	registrations := []func() (commanddispatcher.Subscription, error){
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribe(adapter, commands.InitiateOAuth) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribe(adapter, commands.CompleteOAuth) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribe(adapter, commands.RefreshToken) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribe(adapter, commands.FetchActivity) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribe(adapter, commands.DetectChanges) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribe(adapter, commands.CreateBaseline) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribe(adapter, commands.UpdateBaseline) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribe(adapter, commands.DeleteBaseline) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribeQuery(adapter, queries.GetBaseline) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribeQuery(adapter, queries.ListBaselines) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribeQuery(adapter, queries.LatestStepLog) },
		func() (commanddispatcher.Subscription, error) { return gocommand.RegisterAndSubscribeQuery(adapter, queries.GetIntegration) },
	}

	var subscriptions []commanddispatcher.Subscription
	cleanup := func() {
		for _, subscription := range subscriptions {
			subscription.Unsubscribe()
		}
	}
	for _, register := range registrations {
		subscription, err := register()
		if err != nil {
			cleanup()
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}

	if err := adapter.Initialize(); err != nil {
		cleanup()
		return nil, err
	}
	return subscriptions, nil
}

func bearerTokenResolver(token string) httpapi.SessionResolver {
	return httpapi.SessionResolverFunc(func(c *fiber.Ctx) (string, error) {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		presented := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if presented == "" || presented != token {
			return "", errors.New("invalid bearer token")
		}
		return "api-token", nil
	})
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envDuration(key string) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return 0
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return parsed
}

func envInt(key string) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
