package main

import (
	"context"
	"path/filepath"

	"github.com/jackc/pgx/v4"
	"go.uber.org/zap"

	"github.com/tasacol/hipotecas-compare/internal/app/aggregator"
	"github.com/tasacol/hipotecas-compare/internal/pkg/config"
	"github.com/tasacol/hipotecas-compare/internal/pkg/fetch"
	"github.com/tasacol/hipotecas-compare/internal/pkg/store"
)

func main() {
	logger, err := zap.NewDevelopment()
	noErr(err)
	defer logger.Sync()

	cfg := config.Load()
	ctx := context.Background()

	fetcher := fetch.NewFetcher(cfg.HTTPTimeout, cfg.RateLimitRPS, logger.Named("Fetcher"))
	session := fetch.NewSessionFetcher(cfg.ChromeBin, cfg.BrowserTimeout, logger.Named("SessionFetcher"))

	registry := buildRegistry(cfg, fetcher, session, logger)

	stores := store.Multi{store.NewFileWriter(cfg.OutputDir, logger.Named("FileWriter"))}
	if cfg.PostgresDSN != "" {
		conn, err := pgx.Connect(ctx, cfg.PostgresDSN)
		noErr(err)
		defer conn.Close(ctx)
		stores = append(stores, store.NewPostgres(conn, logger.Named("PG Store")))
	}

	svc := aggregator.NewService(stores, registry, aggregator.DefaultScenarios(),
		cfg.MaxConcurrency, logger.Named("Aggregator Svc"))
	noErr(svc.RunAndSave(ctx))
}

func buildRegistry(cfg *config.Config, fetcher *fetch.Fetcher, session *fetch.SessionFetcher, logger *zap.Logger) aggregator.Registry {
	if cfg.FixturesDir != "" {
		fixture := func(name string) aggregator.SourceFunc {
			return aggregator.FixtureSource(filepath.Join(cfg.FixturesDir, name))
		}
		return aggregator.Registry{
			"bancolombia":     aggregator.NewBancolombiaFixtureExtractor(fixture("bancolombia.pdf"), logger.Named("Bancolombia")),
			"banco-de-bogota": aggregator.NewBogotaFixtureExtractor(fixture("bogota.html"), logger.Named("Bogota")),
			"davivienda":      aggregator.NewDaviviendaFixtureExtractor(fixture("davivienda.pdf"), logger.Named("Davivienda")),
			"bbva-colombia":   aggregator.NewBBVAFixtureExtractor(fixture("bbva.html"), logger.Named("BBVA")),
		}
	}

	return aggregator.Registry{
		"bancolombia":     aggregator.NewBancolombiaExtractor(fetcher, cfg.MaxRetries, logger.Named("Bancolombia")),
		"banco-de-bogota": aggregator.NewBogotaExtractor(fetcher, cfg.MaxRetries, logger.Named("Bogota")),
		"davivienda":      aggregator.NewDaviviendaExtractor(session, logger.Named("Davivienda")),
		"bbva-colombia":   aggregator.NewBBVAExtractor(fetcher, cfg.MaxRetries, logger.Named("BBVA")),
	}
}

func noErr(err error) {
	if err != nil {
		panic("failed to initialize something important: " + err.Error())
	}
}
