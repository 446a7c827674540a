// Package coverage turns a batch of items into a complete list of topics.
//
// Grouping is delegated to an untrusted oracle. The engine calls it for a
// bounded number of rounds, each time only with the items that are still
// unassigned, validates every returned draft against the batch, and hands
// whatever is left to a deterministic catch-all bucket. Every keyed item ends
// up in exactly one topic whatever the oracle does.
package coverage

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
)

// DefaultMaxRounds bounds the oracle calls of one run.
const DefaultMaxRounds = 3

// UntitledTitle names topics whose draft came without a title.
const UntitledTitle = "Untitled"

// KeyFunc returns the batch key of an item, or false when it has none.
type KeyFunc func(domain.Item) (string, bool)

// PermalinkKey keys items by their trimmed permalink.
func PermalinkKey(item domain.Item) (string, bool) {
	link := strings.TrimSpace(item.Permalink)
	return link, link != ""
}

// Config tunes the engine.
type Config struct {
	MaxRounds int
	Key       KeyFunc
}

// Engine runs the coverage loop. A nil oracle behaves like one that always
// answers with no drafts.
type Engine struct {
	oracle    ports.ClusteringOracle
	maxRounds int
	key       KeyFunc
	logger    *slog.Logger
}

// NewEngine builds an engine around the oracle.
func NewEngine(oracle ports.ClusteringOracle, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MaxRounds < 1 {
		cfg.MaxRounds = 1
	}
	if cfg.Key == nil {
		cfg.Key = PermalinkKey
	}
	return &Engine{
		oracle:    oracle,
		maxRounds: cfg.MaxRounds,
		key:       cfg.Key,
		logger:    logging.OrDiscard(logger),
	}
}

// Index maps batch keys to items the way Run does: keyless items are left
// out and the first item wins a duplicated key.
func (e *Engine) Index(items []domain.Item) map[string]domain.Item {
	byKey := make(map[string]domain.Item, len(items))
	for _, item := range items {
		key, ok := e.key(item)
		if !ok {
			continue
		}
		if _, dup := byKey[key]; !dup {
			byKey[key] = item
		}
	}
	return byKey
}

// state is the bookkeeping of a single Run.
type state struct {
	order     []string
	byKey     map[string]domain.Item
	remaining map[string]struct{}
	singles   map[string]struct{}
	collected []domain.Topic
}

// Run partitions items into topics. The union of the returned topics' members
// equals the set of keyed items, and only the fallback topic may hold fewer
// than two members.
func (e *Engine) Run(ctx context.Context, items []domain.Item) []domain.Topic {
	if len(items) == 0 {
		return nil
	}

	logger := logging.Scoped(ctx, e.logger)
	st := e.prepare(items, logger)

	for round := 1; round <= e.maxRounds; round++ {
		if len(st.remaining) == 0 {
			break
		}

		batch, keys := st.subBatch()
		log := logger.With("round", round, "batch", len(batch))

		if e.oracle == nil {
			log.Info("no clustering oracle configured")
			break
		}

		drafts, err := e.oracle.Cluster(ctx, batch)
		if err != nil {
			log.Warn("oracle call failed, stopping rounds", "error", err)
			break
		}
		if len(drafts) == 0 {
			log.Info("oracle returned no drafts, stopping rounds")
			break
		}

		assigned := st.absorb(drafts, keys)
		log.Debug("round finished", "drafts", len(drafts), "assigned", assigned,
			"remaining", len(st.remaining), "singletons", len(st.singles))
		if assigned == 0 {
			log.Info("oracle made no progress, stopping rounds")
			break
		}
	}

	leftover := make(map[string]struct{}, len(st.remaining)+len(st.singles))
	for k := range st.remaining {
		leftover[k] = struct{}{}
	}
	for k := range st.singles {
		leftover[k] = struct{}{}
	}
	if len(leftover) > 0 {
		logger.Info("bucketing leftover items", "count", len(leftover))
		st.collected = append(st.collected, Bucket(leftover, st.byKey))
	}

	return st.collected
}

func (e *Engine) prepare(items []domain.Item, logger *slog.Logger) *state {
	st := &state{
		byKey:     make(map[string]domain.Item, len(items)),
		remaining: make(map[string]struct{}, len(items)),
		singles:   map[string]struct{}{},
	}
	for i, item := range items {
		k, ok := e.key(item)
		if !ok {
			logger.Warn("item has no batch key, excluded from coverage",
				"index", i, "title", item.Title, "source", item.SourceName)
			continue
		}
		if _, dup := st.byKey[k]; dup {
			continue
		}
		st.byKey[k] = item
		st.order = append(st.order, k)
		st.remaining[k] = struct{}{}
	}
	return st
}

// subBatch lists the remaining items and their keys in input order.
func (st *state) subBatch() ([]domain.Item, []string) {
	batch := make([]domain.Item, 0, len(st.remaining))
	keys := make([]string, 0, len(st.remaining))
	for _, k := range st.order {
		if _, ok := st.remaining[k]; ok {
			batch = append(batch, st.byKey[k])
			keys = append(keys, k)
		}
	}
	return batch, keys
}

// absorb validates the drafts of one round and returns how many items were
// placed into finalized topics.
func (st *state) absorb(drafts []domain.TopicDraft, batchKeys []string) int {
	claimed := map[string]struct{}{}
	assigned := 0
	for _, draft := range drafts {
		members := st.members(draft.MemberRefs, batchKeys, claimed)
		switch len(members) {
		case 0:
			continue
		case 1:
			claimed[members[0]] = struct{}{}
			st.singles[members[0]] = struct{}{}
			delete(st.remaining, members[0])
		default:
			for _, k := range members {
				claimed[k] = struct{}{}
				delete(st.remaining, k)
			}
			title := strings.TrimSpace(draft.Title)
			if title == "" {
				title = UntitledTitle
			}
			st.collected = append(st.collected, domain.Topic{
				Title:      title,
				Summary:    strings.TrimSpace(draft.Summary),
				MemberKeys: members,
			})
			assigned += len(members)
		}
	}
	return assigned
}

// members resolves draft references to unclaimed remaining keys. A reference
// is either a key or a 1-based position in this round's batch.
func (st *state) members(refs []string, batchKeys []string, claimed map[string]struct{}) []string {
	var out []string
	taken := map[string]struct{}{}
	for _, ref := range refs {
		k, ok := resolve(strings.TrimSpace(ref), batchKeys, st.remaining)
		if !ok {
			continue
		}
		if _, c := claimed[k]; c {
			continue
		}
		if _, t := taken[k]; t {
			continue
		}
		taken[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func resolve(ref string, batchKeys []string, remaining map[string]struct{}) (string, bool) {
	if ref == "" {
		return "", false
	}
	if _, ok := remaining[ref]; ok {
		return ref, true
	}
	n, err := strconv.Atoi(ref)
	if err != nil || n < 1 || n > len(batchKeys) {
		return "", false
	}
	return batchKeys[n-1], true
}
