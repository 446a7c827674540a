package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"NewsDigest/internal/dedup"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
)

// ErrNoNotifiers is returned when there is something to send but no channel.
var ErrNoNotifiers = errors.New("no notifiers configured")

// DefaultMaxDelivered caps how many items one message carries.
const DefaultMaxDelivered = 25

// SendResult summarizes one send run.
type SendResult struct {
	Candidates int
	New        int
	Delivered  int
}

// SenderConfig tunes delivery.
type SenderConfig struct {
	MaxItems int
	Location *time.Location
}

// Sender delivers new digest entries and remembers what went out.
type Sender struct {
	candidates ports.ItemSource
	records    ports.RecordStore
	store      *dedup.Store
	notifiers  []ports.Notifier
	cfg        SenderConfig
	now        func() time.Time
	logger     *slog.Logger
}

// NewSender wires the candidate feed, the delivery record and channels.
func NewSender(candidates ports.ItemSource, records ports.RecordStore, store *dedup.Store, notifiers []ports.Notifier, cfg SenderConfig, logger *slog.Logger) *Sender {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxDelivered
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Sender{
		candidates: candidates,
		records:    records,
		store:      store,
		notifiers:  notifiers,
		cfg:        cfg,
		now:        time.Now,
		logger:     logging.OrDiscard(logger).With("component", "sender"),
	}
}

// Subject names a digest by the half of the day it is sent in.
func Subject(at time.Time) string {
	slot := "evening"
	if at.Hour() < 12 {
		slot = "morning"
	}
	return fmt.Sprintf("News digest (%s) — %s", slot, at.Format("2006-01-02"))
}

// Send loads the record once, delivers at most MaxItems new entries to every
// notifier and saves the record once, only when every notifier succeeded.
// Only delivered entries are recorded; the rest stay new for the next run.
func (s *Sender) Send(ctx context.Context) (SendResult, error) {
	log := logging.Scoped(ctx, s.logger)
	if s.candidates == nil || s.records == nil || s.store == nil {
		return SendResult{}, fmt.Errorf("sender is not configured")
	}

	candidates, err := s.candidates.Fetch(ctx)
	if err != nil {
		return SendResult{}, fmt.Errorf("read candidates: %w", err)
	}
	sortNewestFirst(candidates)

	record, err := s.records.Load(ctx)
	if err != nil {
		log.Warn("delivery record unreadable, starting empty", "error", err)
		record = domain.DeliveryRecord{}
	}

	fresh, _ := s.store.FilterNew(candidates, record)
	result := SendResult{Candidates: len(candidates), New: len(fresh)}
	if len(fresh) == 0 {
		log.Info("nothing new to send", "candidates", len(candidates))
		return result, nil
	}

	deliver := fresh
	if len(deliver) > s.cfg.MaxItems {
		deliver = deliver[:s.cfg.MaxItems]
	}

	if len(s.notifiers) == 0 {
		return result, ErrNoNotifiers
	}

	now := s.now().In(s.cfg.Location)
	digest := ports.Digest{Subject: Subject(now), Items: deliver}
	for _, notifier := range s.notifiers {
		if err := notifier.PublishDigest(ctx, digest); err != nil {
			return result, fmt.Errorf("publish digest: %w", err)
		}
	}

	_, updated := s.store.FilterNew(deliver, record)
	updated.LastSentAt = now
	// Published items must be recorded even if shutdown began mid-send.
	if err := s.records.Save(context.WithoutCancel(ctx), updated); err != nil {
		return result, fmt.Errorf("save delivery record: %w", err)
	}

	result.Delivered = len(deliver)
	log.Info("digest sent", "subject", digest.Subject, "delivered", result.Delivered, "new", result.New)
	return result, nil
}

func sortNewestFirst(items []domain.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}
