package app

import (
	"context"
	"fmt"

	"github.com/kapu/enka-kakao-bot-go/internal/adapter"
	"github.com/kapu/enka-kakao-bot-go/internal/bot"
	"github.com/kapu/enka-kakao-bot-go/internal/command"
	"github.com/kapu/enka-kakao-bot-go/internal/config"
	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"github.com/kapu/enka-kakao-bot-go/internal/iris"
	"github.com/kapu/enka-kakao-bot-go/internal/service/account"
	"github.com/kapu/enka-kakao-bot-go/internal/service/alias"
	"github.com/kapu/enka-kakao-bot-go/internal/service/cache"
	"github.com/kapu/enka-kakao-bot-go/internal/service/database"
	"github.com/kapu/enka-kakao-bot-go/internal/service/enka"
	"github.com/kapu/enka-kakao-bot-go/internal/service/profile"
	"github.com/kapu/enka-kakao-bot-go/internal/service/reference"
	"github.com/kapu/enka-kakao-bot-go/internal/service/render"
	"github.com/kapu/enka-kakao-bot-go/internal/service/viewer"
	"go.uber.org/zap"
)

// Container bundles assembled services for constructing runtime components like Bot.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	botDeps *bot.Dependencies
}

// NewBot instantiates a bot using the pre-built dependency graph.
func (c *Container) NewBot() (*bot.Bot, error) {
	if c == nil || c.botDeps == nil {
		return nil, fmt.Errorf("bot dependencies not initialized")
	}
	return bot.NewBot(c.botDeps)
}

// OpenDatabase connects to the configured driver and applies the schema.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*database.Service, error) {
	var (
		db  *database.Service
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = database.NewSQLiteService(cfg.SQLitePath, logger)
	default:
		db, err = database.NewPostgresService(database.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
		}, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewSynchronizer builds the reference data synchronizer from config.
func NewSynchronizer(cfg config.EnkaConfig, logger *zap.Logger) *reference.Synchronizer {
	return reference.NewSynchronizer(reference.Options{
		NamesURL:      cfg.NamesURL,
		CharactersURL: cfg.CharactersURL,
		DataDir:       cfg.DataDir,
		Locales:       cfg.Locales,
		UserAgent:     cfg.UserAgent,
	}, logger)
}

// Build assembles all infrastructure services and returns a container capable of
// creating fully-wired bots. Reference data is loaded and the alias index built
// before it returns.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Messaging primitives
	irisClient := iris.NewClient(cfg.Iris.BaseURL, logger)
	irisWS := iris.NewWebSocket(cfg.Iris.WSURL,
		constants.WebSocketConfig.MaxReconnectAttempts,
		constants.WebSocketConfig.ReconnectDelay,
		logger,
	)
	messageAdapter := adapter.NewMessageAdapter(cfg.Bot.Prefix)
	formatter := adapter.NewResponseFormatter(cfg.Bot.Prefix, cfg.Render.Locale)

	// Cache and database
	var store cache.Store
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		store = cache.NewMemoryStore()
		logger.Info("Using in-memory cache")
	default:
		cacheSvc, cacheErr := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if cacheErr != nil {
			return nil, fmt.Errorf("failed to create cache service: %w", cacheErr)
		}
		closers = append(closers, func() {
			_ = cacheSvc.Close()
		})
		store = cacheSvc
	}

	db, err := OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() {
		_ = db.Close()
	})

	// Reference data and aliases
	synchronizer := NewSynchronizer(cfg.Enka, logger)
	aliasSvc := alias.NewService(alias.NewRepository(db.GetDB(), logger), synchronizer, logger)
	synchronizer.Subscribe(aliasSvc.OnReferenceUpdated)

	if err := synchronizer.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	if err := aliasSvc.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to build alias index: %w", err)
	}
	logger.Info("Reference data ready",
		zap.Int("characters", synchronizer.Current().Len()),
		zap.Int("indexed", aliasSvc.Size()),
	)

	// Profiles
	enkaClient := enka.NewClient(enka.Options{
		BaseURL:   cfg.Enka.APIBaseURL,
		UserAgent: cfg.Enka.UserAgent,
	}, logger)
	profiles := profile.NewCache(store, enkaClient, logger)

	// Rendering
	browser := render.NewChromeBrowser(render.ChromeOptions{
		Headless:    cfg.Render.Headless,
		ExecPath:    cfg.Render.ChromePath,
		RemoteURL:   cfg.Render.RemoteURL,
		UserAgent:   cfg.Enka.UserAgent,
		SettleDelay: cfg.Render.SettleDelay,
	}, logger)
	session := render.NewSession(browser, render.SessionConfig{
		BaseURL:           cfg.Enka.BaseURL,
		Locale:            cfg.Render.Locale,
		Watermark:         cfg.Render.Watermark,
		NavigationTimeout: cfg.Render.NavigationTimeout,
		ActionTimeout:     cfg.Render.ActionTimeout,
		CaptureTimeout:    cfg.Render.CaptureTimeout,
	}, logger)
	closers = append(closers, func() {
		_ = session.Close()
	})

	viewerSvc := viewer.NewService(aliasSvc, session, render.NewCache(store, logger), profiles, cfg.Render.CacheTTL, logger)

	var watcher bot.ReferenceWatcher
	if cfg.Enka.WatchData {
		watcher = synchronizer
	}

	deps := &bot.Dependencies{
		Config:         cfg,
		Logger:         logger,
		Sender:         irisClient,
		Listener:       irisWS,
		MessageAdapter: messageAdapter,
		Formatter:      formatter,
		Commands: command.Dependencies{
			Viewer:    viewerSvc,
			Accounts:  account.NewRepository(db.GetDB(), logger),
			Reference: synchronizer,
			Aliases:   aliasSvc,
		},
		Watcher: watcher,
		Closers: closers,
	}

	return &Container{
		Config:  cfg,
		Logger:  logger,
		botDeps: deps,
	}, nil
}
