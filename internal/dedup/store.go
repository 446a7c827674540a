package dedup

import (
	"log/slog"

	"NewsDigest/internal/domain"
)

// DefaultSentKeysLimit is the size of the rolling window of delivered keys.
const DefaultSentKeysLimit = 300

// Store filters candidates against a delivery record.
type Store struct {
	limit  int
	logger *slog.Logger
}

// NewStore creates a store keeping at most limit keys; non-positive limits
// fall back to DefaultSentKeysLimit.
func NewStore(limit int, logger *slog.Logger) *Store {
	if limit <= 0 {
		limit = DefaultSentKeysLimit
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{limit: limit, logger: logger}
}

// Limit returns the configured window size.
func (s *Store) Limit() int {
	return s.limit
}

// FilterNew returns the candidates whose keys are absent from record, in
// input order, together with the record extended by their keys. The input
// record is not modified.
func (s *Store) FilterNew(candidates []domain.Item, record domain.DeliveryRecord) ([]domain.Item, domain.DeliveryRecord) {
	seen := make(map[string]struct{}, len(record.Keys)+len(candidates))
	for _, k := range record.Keys {
		seen[k] = struct{}{}
	}

	var (
		fresh   []domain.Item
		newKeys []string
	)
	for _, item := range candidates {
		key, ok := DeriveKey(item)
		if !ok {
			s.logger.Warn("item has no identity key, skipping", "title", item.Title, "source", item.SourceName)
			continue
		}
		if _, dup := seen[key.Value]; dup {
			continue
		}
		seen[key.Value] = struct{}{}
		fresh = append(fresh, item)
		newKeys = append(newKeys, key.Value)
	}

	updated := domain.DeliveryRecord{
		Keys:       s.appendBounded(record.Keys, newKeys),
		LastSentAt: record.LastSentAt,
	}
	return fresh, updated
}

// appendBounded joins both key lists, drops repeats keeping the first
// occurrence, and keeps only the newest s.limit entries.
func (s *Store) appendBounded(existing, added []string) []string {
	combined := make([]string, 0, len(existing)+len(added))
	seen := make(map[string]struct{}, len(existing)+len(added))
	for _, list := range [][]string{existing, added} {
		for _, k := range list {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			combined = append(combined, k)
		}
	}

	if len(combined) > s.limit {
		combined = combined[len(combined)-s.limit:]
	}
	return combined
}
