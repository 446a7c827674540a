package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/coverage"
	"NewsDigest/internal/dedup"
	"NewsDigest/internal/infrastructure/feedwriter"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/mail"
	"NewsDigest/internal/infrastructure/ml"
	"NewsDigest/internal/infrastructure/parser"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/oracle"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
	"NewsDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	collector *usecase.Collector
	digester  *usecase.Digester
	sender    *usecase.Sender
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	cron      *scheduler.CronScheduler
	closers   []io.Closer
}

// New validates cfg and builds every adapter and use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	fetcher := parser.NewFetcher(&http.Client{Timeout: cfg.Collector.Timeout}, cfg.Collector.RequestsPerSecond)
	rss := parser.NewRSSScanner(fetcher)
	registry := scanner.NewRegistry(rss, parser.NewHTMLListScanner(fetcher))
	source := parser.NewStrategySource(registry, cfg.Sources, cfg.Collector.Concurrency, baseLogger)

	repo, err := storage.OpenSQL(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, repo)

	records, err := a.recordStore(ctx, repo)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	engine := coverage.NewEngine(a.clusteringOracle(), coverage.Config{MaxRounds: cfg.Digest.MaxRounds},
		baseLogger.With("component", "coverage"))

	a.collector = usecase.NewCollector(source, repo, baseLogger)
	a.digester = usecase.NewDigester(repo, feedwriter.NewWriter(cfg.Feeds), engine, usecase.DigesterConfig{
		Window:   time.Duration(cfg.Digest.WindowHours) * time.Hour,
		MaxItems: cfg.Digest.MaxItems,
	}, baseLogger)
	a.sender = usecase.NewSender(
		parser.NewFeedSource(rss, cfg.Delivery.FeedURL, cfg.Feeds.DigestTitle),
		records,
		dedup.NewStore(cfg.Dedup.SentKeysLimit, baseLogger.With("component", "dedup")),
		a.notifiers(),
		usecase.SenderConfig{MaxItems: cfg.Delivery.MaxItems, Location: cfg.Delivery.Location()},
		baseLogger,
	)

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Collector: a.collector,
		Digester:  a.digester,
		Sender:    a.sender,
		Logger:    baseLogger,
	})
	a.cron = scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
	a.scheduler = usecase.NewScheduler(a.cron, a.pipeline)

	return a, nil
}

func (a *Application) clusteringOracle() ports.ClusteringOracle {
	cfg := a.cfg
	opts := oracle.Options{
		SystemPrompt: cfg.Oracle.SystemPrompt,
		Language:     cfg.Oracle.Language,
		BodyChars:    cfg.Digest.BodyChars,
	}
	log := a.logger.With("component", "oracle", "provider", cfg.Oracle.Provider)

	switch cfg.Oracle.Provider {
	case config.ProviderOpenAI:
		return oracle.NewLLMOracle(llm.NewChatGPTClient(cfg.ChatGPT, cfg.Oracle.Temperature), opts, log)
	case config.ProviderAnthropic:
		return oracle.NewLLMOracle(llm.NewAnthropicClient(cfg.Anthropic, cfg.Oracle.Temperature), opts, log)
	case config.ProviderML:
		return ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey)
	default:
		a.logger.Warn("no clustering oracle, every item goes to the fallback topic")
		return nil
	}
}

func (a *Application) recordStore(ctx context.Context, repo *storage.SQLRepository) (ports.RecordStore, error) {
	switch a.cfg.Dedup.Backend {
	case config.BackendSQL:
		return repo.Records(), nil
	case config.BackendRedis:
		store, err := storage.DialRedisRecordStore(ctx, a.cfg.Dedup.RedisURL, a.cfg.Dedup.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("open redis record store: %w", err)
		}
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return storage.NewFileRecordStore(a.cfg.Dedup.StatePath), nil
	}
}

func (a *Application) notifiers() []ports.Notifier {
	var out []ports.Notifier
	if a.cfg.Delivery.Email.Enabled() {
		out = append(out, mail.NewSender(a.cfg.Delivery.Email))
	}
	if a.cfg.Delivery.Telegram.Enabled() {
		out = append(out, telegram.NewNotifier(a.cfg.Delivery.Telegram.BotToken, a.cfg.Delivery.Telegram.ChatID))
	}
	return out
}

// Collect runs the collect step once.
func (a *Application) Collect(ctx context.Context) (usecase.CollectResult, error) {
	return a.collector.Collect(ctx)
}

// Digest runs the digest step once.
func (a *Application) Digest(ctx context.Context) (usecase.DigestResult, error) {
	return a.digester.Digest(ctx)
}

// Send runs the send step once.
func (a *Application) Send(ctx context.Context) (usecase.SendResult, error) {
	return a.sender.Send(ctx)
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (usecase.RunResult, error) {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.RunOnce(ctx, now)
}

// Serve runs the pipeline on the configured schedule until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String(),
		"next", a.cron.Next().Format(time.RFC3339))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("scheduler stopped")
	return nil
}

// Close releases storage connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
