package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
)

// CollectResult summarizes one collect run.
type CollectResult struct {
	Fetched int
	Saved   int
}

// Collector pulls items from every source and stores the new ones.
type Collector struct {
	source     ports.ItemSource
	repository ports.ItemRepository
	logger     *slog.Logger
}

// NewCollector wires the source and repository.
func NewCollector(source ports.ItemSource, repository ports.ItemRepository, logger *slog.Logger) *Collector {
	return &Collector{
		source:     source,
		repository: repository,
		logger:     logging.OrDiscard(logger).With("component", "collector"),
	}
}

// Collect fetches and saves. Items already stored are not counted as saved.
func (c *Collector) Collect(ctx context.Context) (CollectResult, error) {
	log := logging.Scoped(ctx, c.logger)
	if c.source == nil || c.repository == nil {
		return CollectResult{}, fmt.Errorf("collector is not configured")
	}

	items, err := c.source.Fetch(ctx)
	if err != nil {
		return CollectResult{}, fmt.Errorf("fetch items: %w", err)
	}

	saved, err := c.repository.SaveItems(ctx, items)
	if err != nil {
		return CollectResult{Fetched: len(items)}, fmt.Errorf("save items: %w", err)
	}

	log.Info("collect finished", "fetched", len(items), "saved", saved)
	return CollectResult{Fetched: len(items), Saved: saved}, nil
}
