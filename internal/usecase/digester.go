package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/coverage"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
)

// DigestResult summarizes one digest run.
type DigestResult struct {
	Items    int
	Topics   int
	Fallback int
}

// DigesterConfig bounds the window of items a digest covers.
type DigesterConfig struct {
	Window   time.Duration
	MaxItems int
}

// Digester groups recent items into topics and publishes both feeds.
type Digester struct {
	repository ports.ItemRepository
	feeds      ports.FeedWriter
	engine     *coverage.Engine
	cfg        DigesterConfig
	now        func() time.Time
	logger     *slog.Logger
}

// NewDigester wires storage, feed output and the coverage engine.
func NewDigester(repository ports.ItemRepository, feeds ports.FeedWriter, engine *coverage.Engine, cfg DigesterConfig, logger *slog.Logger) *Digester {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	return &Digester{
		repository: repository,
		feeds:      feeds,
		engine:     engine,
		cfg:        cfg,
		now:        time.Now,
		logger:     logging.OrDiscard(logger).With("component", "digester"),
	}
}

// Digest loads the window, writes the raw feed, clusters and writes the
// digest feed. Nothing is written when the window is empty.
func (d *Digester) Digest(ctx context.Context) (DigestResult, error) {
	log := logging.Scoped(ctx, d.logger)
	if d.repository == nil || d.feeds == nil || d.engine == nil {
		return DigestResult{}, fmt.Errorf("digester is not configured")
	}

	since := d.now().UTC().Add(-d.cfg.Window)
	items, err := d.repository.RecentItems(ctx, since, d.cfg.MaxItems)
	if err != nil {
		return DigestResult{}, fmt.Errorf("load recent items: %w", err)
	}
	if len(items) == 0 {
		log.Info("no items in window", "since", since.Format(time.RFC3339))
		return DigestResult{}, nil
	}

	if err := d.feeds.WriteRaw(ctx, items); err != nil {
		return DigestResult{Items: len(items)}, fmt.Errorf("write raw feed: %w", err)
	}

	topics := d.engine.Run(ctx, items)

	result := DigestResult{Items: len(items), Topics: len(topics)}
	for _, topic := range topics {
		if topic.Fallback {
			result.Fallback = len(topic.MemberKeys)
		}
	}

	if err := d.feeds.WriteDigest(ctx, topics, d.engine.Index(items)); err != nil {
		return result, fmt.Errorf("write digest feed: %w", err)
	}

	log.Info("digest finished", "items", result.Items, "topics", result.Topics, "fallback_items", result.Fallback)
	return result, nil
}
