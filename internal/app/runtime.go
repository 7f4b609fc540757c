package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"cockpit/internal/auth"
	"cockpit/internal/blogapi"
	"cockpit/internal/content"
	"cockpit/internal/docstore"
	"cockpit/internal/imagegen"
	"cockpit/internal/pipeline"
	"cockpit/internal/store"
)

// Runtime holds every long-lived component built from a Config.
type Runtime struct {
	Config      Config
	Logger      *zap.Logger
	DB          *sql.DB
	Static      *content.StaticIndex
	Auth        *auth.Authenticator
	BlogAPI     *blogapi.Client
	Resolver    *content.Resolver
	Docs        *docstore.Store
	Generations *store.GenerationLog
	Pipeline    *pipeline.Pipeline
}

// NewRuntime opens the database, loads the static index and wires the
// resolver and image pipeline.
func NewRuntime(ctx context.Context, cfg Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := store.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	generations := store.NewGenerationLog(db, cfg.DBDriver)
	if err := generations.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	static, err := content.LoadStaticIndex(cfg.ContentDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load static content: %w", err)
	}

	rt := &Runtime{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		Static:      static,
		Auth:        auth.New(cfg.SessionTokens),
		Generations: generations,
	}

	var api content.PostAPI
	if cfg.BlogAPIURL != "" {
		rt.BlogAPI = blogapi.NewClient(cfg.BlogAPIURL, &http.Client{Timeout: cfg.BlogAPITimeout}, auth.TokenFromContext)
		api = rt.BlogAPI
	}
	rt.Resolver = content.NewResolver(content.Config{UseAPI: cfg.UseAPIContent}, api, rt.Auth, static, logger.Named("resolver"))

	rt.Docs = docstore.New(cfg.ContentDir, logger.Named("docstore"))
	agent := imagegen.NewClient(imagegen.Config{
		Endpoint:   cfg.ImageAPIURL,
		APIKey:     cfg.ImageAPIKey,
		Model:      cfg.ImageModel,
		OutputDir:  cfg.ImageOutputDir,
		PublicPath: cfg.ImagePublicPath,
	}, nil)
	rt.Pipeline = pipeline.New(rt.Docs, agent, generations, imagegen.Options{Size: cfg.ImageSize}, logger.Named("pipeline"))

	logger.Info("runtime ready",
		zap.String("content_dir", cfg.ContentDir),
		zap.Int("static_posts", len(static.Posts())),
		zap.Bool("api_content", cfg.UseAPIContent),
		zap.String("db_driver", cfg.DBDriver),
	)
	return rt, nil
}

// Handler returns the HTTP handler serving the runtime.
func (rt *Runtime) Handler() http.Handler {
	deps := Deps{
		Resolver:    rt.Resolver,
		Auth:        rt.Auth,
		Docs:        rt.Docs,
		Pipeline:    rt.Pipeline,
		Generations: rt.Generations,
		Logger:      rt.Logger,
	}
	if rt.BlogAPI != nil {
		deps.Posts = rt.BlogAPI
	}
	return NewServer(deps)
}

// Close releases the database handle.
func (rt *Runtime) Close() error {
	if rt.DB == nil {
		return nil
	}
	return rt.DB.Close()
}
