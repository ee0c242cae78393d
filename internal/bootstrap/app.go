// Package bootstrap assembles the application from configuration: model
// backends behind their retry and cache wrappers, the ledger store, the
// pipeline engine and the HTTP router.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"

	"juris-backend/internal/analysis"
	"juris-backend/internal/ledger"
	"juris-backend/internal/llm"
	"juris-backend/internal/llm/huggingface"
	"juris-backend/internal/llm/openai"
	"juris-backend/internal/server"
	"juris-backend/internal/shared/config"
	"juris-backend/internal/shared/storage/db"
	"juris-backend/internal/shared/telemetry"
)

// App holds the wired application.
type App struct {
	Router *gin.Engine
	Engine *analysis.Engine
	Ledger ledger.Store

	sqlDB *sql.DB
}

// New wires an App from configuration. The returned App owns the
// database connection, if any; call Close when done.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	firstPass, judge, err := buildBackends(cfg)
	if err != nil {
		return nil, err
	}

	store, sqlDB, err := buildLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine := &analysis.Engine{
		FirstPass: firstPass,
		Judge:     judge,
		Ledger:    store,
		Defaults: analysis.Defaults{
			UseEvaluation:      cfg.UseEvaluation,
			UseImprovement:     cfg.UseImprovement,
			UseBatchProcessing: cfg.UseBatchProcessing,
			BatchSize:          cfg.BatchSize,
		},
	}

	handler := server.NewHandler(engine, store, cfg.MaxUploadBytes)
	handler.MockMode = cfg.MockMode()
	handler.LedgerBackend = cfg.LedgerBackend
	return &App{
		Router: server.NewRouter(handler),
		Engine: engine,
		Ledger: store,
		sqlDB:  sqlDB,
	}, nil
}

// Close releases resources owned by the App.
func (a *App) Close() error {
	if a.sqlDB != nil {
		return a.sqlDB.Close()
	}
	return nil
}

func buildBackends(cfg config.Config) (*llm.Cached, *llm.Cached, error) {
	if cfg.MockMode() {
		telemetry.Warn("bootstrap.mock_mode", map[string]any{
			"reason": "no upstream API keys configured",
		})
		firstPass := llm.NewCached(&llm.Mock{Response: mockFirstPassResponse}, "first-pass", cfg.CacheTTL)
		judge := llm.NewCached(&llm.Mock{Response: mockJudgeResponse}, "judge", cfg.CacheTTL)
		return firstPass, judge, nil
	}

	hf, err := huggingface.NewClient(
		cfg.FirstPassAPIKey,
		cfg.FirstPassAPIURL,
		cfg.FirstPassModel,
		cfg.FirstPassMaxTokens,
		cfg.RequestTimeout,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("first-pass backend: %w", err)
	}
	oa, err := openai.NewClient(cfg.JudgeAPIKey, cfg.JudgeModel, cfg.JudgeMaxTokens)
	if err != nil {
		return nil, nil, fmt.Errorf("judge backend: %w", err)
	}

	firstPass := llm.NewCached(llm.NewRetrying(hf, "first-pass"), "first-pass", cfg.CacheTTL)
	judge := llm.NewCached(llm.NewRetrying(oa, "judge"), "judge", cfg.CacheTTL)
	return firstPass, judge, nil
}

func buildLedger(ctx context.Context, cfg config.Config) (ledger.Store, *sql.DB, error) {
	if cfg.LedgerBackend == "postgres" {
		conn, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return nil, nil, fmt.Errorf("ledger database: %w", err)
		}
		if err := ledger.Migrate(conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return ledger.NewPGStore(conn), conn, nil
	}

	store, err := ledger.NewFileStore(cfg.LedgerDir)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}
