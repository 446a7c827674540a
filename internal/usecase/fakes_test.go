package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

type fakeSource struct {
	items []domain.Item
	err   error
}

func (f *fakeSource) Fetch(context.Context) ([]domain.Item, error) {
	out := make([]domain.Item, len(f.items))
	copy(out, f.items)
	return out, f.err
}

type fakeRepo struct {
	stored map[string]domain.Item
	recent []domain.Item
	err    error

	since time.Time
	limit int
}

func (f *fakeRepo) SaveItems(_ context.Context, items []domain.Item) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.stored == nil {
		f.stored = map[string]domain.Item{}
	}
	n := 0
	for _, it := range items {
		if _, ok := f.stored[it.ID]; ok {
			continue
		}
		f.stored[it.ID] = it
		n++
	}
	return n, nil
}

func (f *fakeRepo) RecentItems(_ context.Context, since time.Time, limit int) ([]domain.Item, error) {
	f.since, f.limit = since, limit
	return f.recent, f.err
}

type fakeFeeds struct {
	raw    []domain.Item
	topics []domain.Topic
	index  map[string]domain.Item
	calls  int
}

func (f *fakeFeeds) WriteRaw(_ context.Context, items []domain.Item) error {
	f.calls++
	f.raw = items
	return nil
}

func (f *fakeFeeds) WriteDigest(_ context.Context, topics []domain.Topic, items map[string]domain.Item) error {
	f.calls++
	f.topics, f.index = topics, items
	return nil
}

type memoryRecords struct {
	record  domain.DeliveryRecord
	loadErr error
	saves   int
}

func (m *memoryRecords) Load(context.Context) (domain.DeliveryRecord, error) {
	if m.loadErr != nil {
		return domain.DeliveryRecord{Keys: []string{"garbage"}}, m.loadErr
	}
	return m.record, nil
}

func (m *memoryRecords) Save(ctx context.Context, record domain.DeliveryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.saves++
	m.record = record
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	digests []ports.Digest
	err     error
	after   func()
}

func (r *recordingNotifier) PublishDigest(_ context.Context, digest ports.Digest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.digests = append(r.digests, digest)
	if r.after != nil {
		r.after()
	}
	return nil
}

var errBoom = errors.New("boom")
