package entrypoint

import (
	"context"
	"fmt"
	"log"

	"github.com/mrlokans/readinglist/internal/config"
	"github.com/mrlokans/readinglist/internal/database"
	"github.com/mrlokans/readinglist/internal/database/settings"
	"github.com/mrlokans/readinglist/internal/database/store"
	"github.com/mrlokans/readinglist/internal/operations"
	"github.com/mrlokans/readinglist/internal/remote"
	"github.com/mrlokans/readinglist/internal/services"
	"github.com/mrlokans/readinglist/internal/syncengine"
	"github.com/mrlokans/readinglist/internal/tokenstore"
)

// App is the sync engine with everything it sits on. Both the server and the
// one-shot CLI commands build one.
type App struct {
	Config *config.Config
	DB     *database.Database
	Store  *store.Store
	// TokenStore is the persisted token; Tokens may override it with ACCESS_TOKEN.
	TokenStore *tokenstore.Store
	Tokens     tokenstore.Provider
	Gateway    remote.Gateway
	Engine     *syncengine.Engine
}

// Open wires the local store, the remote gateway and the engine. Nothing
// talks to the network until the engine is asked to.
func Open(cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.Database.Path, database.Options{LogLevel: cfg.Database.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gateway, err := remote.NewHTTPGateway(remote.HTTPConfig{
		BaseURL:    cfg.Remote.BaseURL,
		Timeout:    cfg.Remote.Timeout,
		MaxRetries: cfg.Remote.MaxRetries,
		RateLimit:  cfg.Remote.RateLimit,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize remote gateway: %w", err)
	}

	app, err := Assemble(cfg, db, gateway)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

// Assemble builds the engine over an open database and a gateway.
func Assemble(cfg *config.Config, db *database.Database, gateway remote.Gateway) (*App, error) {
	settingsRepo := settings.NewRepository(db.DB)
	tokenStore, err := tokenstore.New(settingsRepo, tokenstore.Config{
		EncryptionKey: cfg.Token.EncryptionKey,
		KeyFilePath:   cfg.Token.KeyFilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}
	tokens := tokenstore.Resolve(cfg.Token.AccessToken, tokenStore)

	s := store.New(db.DB)
	engine := syncengine.New(syncengine.Deps{
		Store:       s,
		Factory:     operations.NewRemoteFactory(gateway, s),
		Queue:       operations.NewQueue(cfg.Sync.Workers),
		Tokens:      tokens,
		LastRefresh: settings.NewLastRefresh(settingsRepo),
		Archive:     services.NewRemoteArchiveService(gateway, tokens, cfg.Sync.PageSize),
		Slates:      services.NewRemoteSlateService(gateway, tokens),
	}, syncengine.Config{
		PageSize:          cfg.Sync.PageSize,
		Sort:              remote.ParseSort(cfg.Sync.Sort),
		OutboxMaxAttempts: cfg.Sync.OutboxMaxAttempts,
	})

	return &App{
		Config:     cfg,
		DB:         db,
		Store:      s,
		TokenStore: tokenStore,
		Tokens:     tokens,
		Gateway:    gateway,
		Engine:     engine,
	}, nil
}

// Close stops the engine, giving running remote operations until ctx ends,
// then closes the database. Unconfirmed mutations stay in the outbox for the
// next start.
func (a *App) Close(ctx context.Context) error {
	if err := a.Engine.Stop(ctx); err != nil {
		log.Printf("[SYNC] Stopped with operations outstanding: %v", err)
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
