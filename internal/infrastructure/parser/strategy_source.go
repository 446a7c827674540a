package parser

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
)

// StrategySource implements ItemSource via registered scanner strategies.
type StrategySource struct {
	registry    *scanner.Registry
	sources     []config.SourceConfig
	concurrency int
	logger      *slog.Logger
}

var _ ports.ItemSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, concurrency int, log *slog.Logger) *StrategySource {
	if concurrency < 1 {
		concurrency = 1
	}
	return &StrategySource{
		registry:    reg,
		sources:     sources,
		concurrency: concurrency,
		logger:      logging.OrDiscard(log).With("component", "strategy_source"),
	}
}

// Fetch runs every configured source concurrently. A source that fails is
// logged and skipped; partial results of a source are kept. Output follows
// the configured source order.
func (s *StrategySource) Fetch(ctx context.Context) ([]domain.Item, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.logger.Debug("fetch sources", "sources", len(s.sources))

	perSource := make([][]domain.Item, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			s.logger.Warn("skip source", "source", src.Name, "error", err)
			continue
		}

		g.Go(func() error {
			req := scanner.Request{
				SourceName: src.Name,
				URLs:       src.URLs,
				Options:    src.Options,
			}

			results, err := strategy.Scan(gctx, req)
			if err != nil {
				s.logger.Warn("source failed", "source", src.Name, "scanner", src.Scanner, "error", err, "partial", len(results))
			}
			s.logger.Debug("source produced items", "source", src.Name, "count", len(results))
			perSource[i] = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch sources: %w", err)
	}

	var aggregated []domain.Item
	for _, items := range perSource {
		aggregated = append(aggregated, items...)
	}

	s.logger.Debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}
