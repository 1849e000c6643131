// Package app wires the configuration, stores, plugins and handlers of the
// document service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jun/markpad/backend/internal/adapter"
	"github.com/jun/markpad/backend/internal/adapter/dynamo"
	"github.com/jun/markpad/backend/internal/adapter/memory"
	"github.com/jun/markpad/backend/internal/auth"
	"github.com/jun/markpad/backend/internal/config"
	"github.com/jun/markpad/backend/internal/handler"
	"github.com/jun/markpad/backend/internal/logging"
	"github.com/jun/markpad/backend/internal/metrics"
	"github.com/jun/markpad/backend/internal/secret"
	"github.com/jun/markpad/backend/internal/session"
	"github.com/jun/markpad/core/plugin"
	"github.com/jun/markpad/core/plugin/builtin"
)

const devJWTSecret = "default-dev-secret"

// Options overrides the dependencies New would otherwise build from the
// configuration. Zero fields are built.
type Options struct {
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Stores     adapter.StoreProvider
	Locker     session.Locker
	Secrets    secret.Resolver
}

// App holds the dependencies for the Lambda function.
type App struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *plugin.Registry
	metrics  *metrics.Metrics

	authHandler      *handler.AuthHandler
	documentHandler  *handler.DocumentHandler
	editorHandler    *handler.EditorHandler
	pluginHandler    *handler.PluginHandler
	sessionHandler   *handler.SessionHandler
	syncHandler      *handler.SyncHandler
	apiGatewaySecret string

	closers []func() error
}

// NewApp initializes the application from the environment. It panics when
// the configuration is unusable, which fails the Lambda cold start.
func NewApp(ctx context.Context) *App {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("unable to load config: %v", err))
	}
	app, err := New(ctx, cfg, Options{Logger: logging.NewJSON(os.Stdout, cfg.LogLevel)})
	if err != nil {
		panic(fmt.Sprintf("unable to initialize app: %v", err))
	}
	return app
}

// New builds an App for cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logging.New(cfg.LogLevel)
	}
	app := &App{cfg: cfg, log: log}

	if opts.Registerer != nil {
		app.metrics = metrics.New(opts.Registerer)
	} else {
		app.metrics = metrics.NewNop()
	}

	registry, err := app.newRegistry()
	if err != nil {
		return nil, err
	}
	app.registry = registry

	var clients *awsClients
	if cfg.NeedsAWS() && (opts.Stores == nil || opts.Locker == nil || opts.Secrets == nil) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		clients = &awsClients{
			dynamo: dynamodb.NewFromConfig(awsCfg),
			ssm:    ssm.NewFromConfig(awsCfg),
		}
	}

	stores := opts.Stores
	if stores == nil {
		stores = app.newStores(clients)
	}
	locker := opts.Locker
	if locker == nil {
		if locker, err = app.newLocker(clients); err != nil {
			return nil, err
		}
	}
	resolver := opts.Secrets
	if resolver == nil {
		resolver = app.newResolver(clients)
	}

	jwtSecret, err := resolver.GetSecret(ctx, cfg.JWTSecretParam)
	if err != nil {
		if !cfg.DevMode {
			return nil, fmt.Errorf("resolve JWT secret: %w", err)
		}
		log.Warn("failed to resolve JWT secret, using development default", "error", err)
		jwtSecret = devJWTSecret
	}
	if !cfg.DevMode {
		app.apiGatewaySecret, err = resolver.GetSecret(ctx, cfg.APIGatewaySecretParam)
		if err != nil {
			log.Warn("failed to resolve API gateway secret", "error", err)
		}
	}

	tokens := auth.NewTokens(jwtSecret, auth.DefaultTTL)
	app.authHandler = handler.NewAuthHandler(stores, tokens, log, cfg.FrontendURL, !cfg.DevMode)
	app.documentHandler = handler.NewDocumentHandler(stores, tokens, log)
	app.editorHandler = handler.NewEditorHandler(stores, tokens, registry, app.metrics, log, cfg.HighlightStyle)
	app.pluginHandler = handler.NewPluginHandler(registry, tokens, log)
	app.sessionHandler = handler.NewSessionHandler(locker, tokens, app.metrics, log)
	app.syncHandler = handler.NewSyncHandler(stores, tokens, log)

	log.Info("app initialized",
		"store", cfg.StoreBackend,
		"locks", cfg.LockBackend,
		"plugins", len(registry.List()),
		"dev_mode", cfg.DevMode,
	)
	return app, nil
}

// Registry returns the plugin registry shared by all requests.
func (app *App) Registry() *plugin.Registry {
	return app.registry
}

// Close releases the connections held by the app.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) newRegistry() (*plugin.Registry, error) {
	reg := plugin.NewRegistry(plugin.WithErrorHandler(func(event string, err error) {
		app.log.Warn("plugin listener failed", "event", event, "error", err)
	}))
	stop := app.metrics.Watch(reg)
	app.closers = append(app.closers, func() error { stop(); return nil })

	if err := builtin.Register(reg); err != nil {
		return nil, fmt.Errorf("register built-in plugins: %w", err)
	}
	if app.cfg.PluginsFile != "" {
		settings, err := config.LoadPluginSettings(app.cfg.PluginsFile)
		if err != nil {
			return nil, err
		}
		if err := settings.Apply(reg); err != nil {
			return nil, fmt.Errorf("apply plugin settings: %w", err)
		}
		app.log.Info("plugin settings applied", "file", app.cfg.PluginsFile)
	}
	return reg, nil
}

type awsClients struct {
	dynamo *dynamodb.Client
	ssm    *ssm.Client
}

func (app *App) newStores(clients *awsClients) adapter.StoreProvider {
	demo := memory.NewProvider()
	if app.cfg.StoreBackend == config.BackendMemory || clients == nil {
		app.log.Info("using in-memory document store")
		return demo
	}
	app.log.Info("using DynamoDB document store", "table", app.cfg.DocumentsTable)
	return &HybridProvider{
		primary: dynamo.NewProvider(clients.dynamo, app.cfg.DocumentsTable, app.cfg.DocumentTTL),
		demo:    demo,
	}
}

func (app *App) newLocker(clients *awsClients) (session.Locker, error) {
	switch app.cfg.LockBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: app.cfg.RedisAddr,
			DB:   app.cfg.RedisDB,
		})
		app.closers = append(app.closers, client.Close)
		app.log.Info("using Redis edit locks", "addr", app.cfg.RedisAddr)
		return session.NewRedisLocker(client, app.cfg.RedisPrefix), nil
	case config.BackendDynamoDB:
		if clients == nil {
			return nil, errors.New("DynamoDB edit locks need AWS configuration")
		}
		app.log.Info("using DynamoDB edit locks", "table", app.cfg.LocksTable)
		return session.NewDynamoLocker(clients.dynamo, app.cfg.LocksTable), nil
	default:
		app.log.Info("using in-memory edit locks")
		return session.NewMemoryLocker(), nil
	}
}

func (app *App) newResolver(clients *awsClients) secret.Resolver {
	if app.cfg.DevMode || clients == nil {
		app.log.Info("using EnvResolver")
		return secret.NewEnvResolver()
	}
	app.log.Info("using SSMResolver (SSM Parameter Store)")
	return secret.NewCache(secret.Chain{secret.NewSSMResolver(clients.ssm), secret.NewEnvResolver()}, 15*time.Minute)
}
