package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/YuppyChen/ai-images-creator/internal/adapter/repo"
	"github.com/YuppyChen/ai-images-creator/internal/gen"
	"github.com/YuppyChen/ai-images-creator/internal/http/handlers"
	"github.com/YuppyChen/ai-images-creator/internal/http/httpapi"
	"github.com/YuppyChen/ai-images-creator/internal/infra"
	"github.com/YuppyChen/ai-images-creator/internal/infra/geoip"
	"github.com/YuppyChen/ai-images-creator/internal/middleware"
	"github.com/YuppyChen/ai-images-creator/internal/providers/wanx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := infra.EnsureSchema(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	client, err := wanx.NewClient(wanx.Options{
		APIKey:         cfg.DashScopeAPIKey,
		BaseURL:        cfg.DashScopeBaseURL,
		Model:          cfg.DashScopeModel,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build provider client")
	}
	if !client.HasCredentials() {
		logger.Warn().Msg("QWEN_API_KEY is not set; generation requests will fail")
	}

	ledger := repo.NewCreditLedger(dbpool, cfg.DefaultCredits)
	history := repo.NewHistoryStore(dbpool)
	orchestrator := gen.NewOrchestrator(ledger, history, gen.NewRegistry(), client, logger)

	app := handlers.NewApp(orchestrator, ledger, history, logger)
	app.HistoryPageSize = cfg.HistoryPageSize

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip resolver unavailable")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, cfg, logger, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
