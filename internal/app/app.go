package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasbauer/voicebridge/internal/eventlog"
	"github.com/lukasbauer/voicebridge/internal/httpapi"
)

type App struct {
	cfg      Config
	logger   *log.Logger
	db       *pgxpool.Pool
	eventLog *eventlog.Logger
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	// The database is optional: it only backs session event telemetry.
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		db = pool
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		eventLog: eventlog.New(db),
	}, nil
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		DeepgramAPIKey: a.cfg.DeepgramAPIKey,
		DeepgramModel:  a.cfg.DeepgramModel,
		STTLanguage:    a.cfg.STTLanguage,
		LLMProvider:    a.cfg.LLMProvider,
		GeminiAPIKey:   a.cfg.GeminiAPIKey,
		GeminiModel:    a.cfg.GeminiModel,
		OpenAIAPIKey:   a.cfg.OpenAIAPIKey,
		OpenAIModel:    a.cfg.OpenAIModel,
		WaitForFinals:  a.cfg.WaitForFinals,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.eventLog)
}

func (a *App) Close() error {
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
