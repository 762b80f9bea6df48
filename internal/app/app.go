package app

import (
	"context"
	"fmt"
	"log"

	"agridetect/internal/config"
	"agridetect/internal/diagnose"
	"agridetect/internal/garden"
	"agridetect/internal/llmclient"
	"agridetect/internal/photos"
	"agridetect/internal/server"
	"agridetect/internal/session"
)

type App struct {
	server *server.Server
	llm    llmclient.Client
	garden *garden.Store
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Dependencies
	llm, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	identifier := &diagnose.Identifier{LLM: llm}
	diagnoser := &diagnose.DiseaseDiagnoser{LLM: llm}
	remedies := &diagnose.RemedySuggester{LLM: llm}
	assistant := &diagnose.Assistant{LLM: llm}

	sessions := session.NewManager(session.Config{
		Identifier:    identifier,
		Diagnoser:     diagnoser,
		Assistant:     assistant,
		MaxImageBytes: cfg.MaxImageBytes,
	})

	gardenStore, err := openGarden(cfg)
	if err != nil {
		_ = llm.Close()
		return nil, err
	}

	photoStore := openPhotos(cfg)

	handlers := &server.Handlers{
		Sessions:      sessions,
		Remedies:      remedies,
		Garden:        gardenStore,
		Photos:        photoStore,
		MaxImageBytes: cfg.MaxImageBytes,
	}

	// Routing & Server
	mux := server.Routes(handlers, cfg.APIToken)
	srv := server.New(cfg.Port, mux)

	return &App{
		server: srv,
		llm:    llm,
		garden: gardenStore,
	}, nil
}

func buildLLM(ctx context.Context, cfg *config.Config) (llmclient.Client, error) {
	base, err := llmclient.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return llmclient.Chain(base,
		llmclient.WithLogging(nil),
		llmclient.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
	), nil
}

// openGarden prefers Postgres when a DSN is configured and falls back to a
// local SQLite file otherwise.
func openGarden(cfg *config.Config) (*garden.Store, error) {
	if cfg.Garden.PostgresDSN != "" {
		st, err := garden.OpenPostgres(cfg.Garden.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open garden store (postgres): %w", err)
		}
		log.Printf("garden store: postgres")
		return st, nil
	}
	st, err := garden.OpenSQLite(cfg.Garden.SQLiteDir)
	if err != nil {
		return nil, fmt.Errorf("open garden store (sqlite): %w", err)
	}
	log.Printf("garden store: sqlite at %s", cfg.Garden.SQLiteDir)
	return st, nil
}

// openPhotos is best effort: the photo archive is optional and a
// misconfiguration only disables it.
func openPhotos(cfg *config.Config) *photos.Store {
	if !cfg.Photos.Enabled {
		return nil
	}
	st, err := photos.NewStore(photos.S3Config{
		Endpoint:  cfg.Photos.Endpoint,
		Region:    cfg.Photos.Region,
		AccessKey: cfg.Photos.AccessKey,
		SecretKey: cfg.Photos.SecretKey,
		Bucket:    cfg.Photos.Bucket,
		UseSSL:    cfg.Photos.UseSSL,
	})
	if err != nil {
		log.Printf("photo archive disabled: %v", err)
		return nil
	}
	return st
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.llm.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := a.garden.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
