package aggregator

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tasacol/hipotecas-compare/internal/pkg/model"
)

// Store persists the produced datasets.
type Store interface {
	SaveDataset(ctx context.Context, offers model.OffersDataset, rankings model.Rankings) error
}

// Registry is the closed set of bank extractors, keyed by bank id. The
// service iterates this table; adding a bank means registering it here.
type Registry map[string]RateExtractor

// Service runs every registered extractor with bounded parallelism and
// reduces the per-bank results into the deduplicated dataset and rankings.
type Service struct {
	store       Store
	registry    Registry
	scenarios   []ScenarioDefinition
	concurrency int
	logger      *zap.Logger
}

func NewService(store Store, registry Registry, scenarios []ScenarioDefinition, concurrency int, logger *zap.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		store:       store,
		registry:    registry,
		scenarios:   scenarios,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run executes the pipeline. Extractor runs touch disjoint resources and own
// their results, so they fan out concurrently; the reduction (merge, dedupe,
// rank) is single-threaded once all results are in. A failing bank
// contributes an empty result with warnings and never aborts the run.
func (s *Service) Run(ctx context.Context) (model.OffersDataset, model.Rankings, []model.BankParseResult) {
	resultCh := make(chan model.BankParseResult)
	collected := make([]model.BankParseResult, 0, len(s.registry))
	recvDone := make(chan struct{})

	go func() {
		defer close(recvDone)
		for result := range resultCh {
			if len(result.Warnings) > 0 {
				s.logger.Warn("bank parsed with warnings",
					zap.String("bank", result.BankID), zap.Strings("warnings", result.Warnings))
			} else {
				s.logger.Info("bank parsed",
					zap.String("bank", result.BankID), zap.Int("offers", len(result.Offers)))
			}
			collected = append(collected, result)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, extractor := range s.registry {
		extractor := extractor
		g.Go(func() error {
			resultCh <- extractor.Parse(gctx)
			return nil
		})
	}

	_ = g.Wait()
	close(resultCh)
	<-recvDone
	s.logger.Info("all extractors finished", zap.Int("banks", len(collected)))

	// order-independent reduction: results are sorted by bank before the
	// per-bank dedup so the aggregate never depends on completion order
	sort.Slice(collected, func(i, j int) bool { return collected[i].BankID < collected[j].BankID })

	merged := make([]model.Offer, 0)
	for _, result := range collected {
		merged = append(merged, Dedupe(result.Offers)...)
	}

	dataset := model.OffersDataset{GeneratedAt: time.Now().UTC(), Offers: merged}
	rankings := Rank(merged, s.scenarios)
	return dataset, rankings, collected
}

// RunAndSave runs the pipeline and persists the artifacts.
func (s *Service) RunAndSave(ctx context.Context) error {
	dataset, rankings, _ := s.Run(ctx)
	return s.store.SaveDataset(ctx, dataset, rankings)
}
