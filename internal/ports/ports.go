package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// ItemSource pulls fresh items from upstream feeds.
type ItemSource interface {
	Fetch(ctx context.Context) ([]domain.Item, error)
}

// ItemRepository keeps collected raw items between runs.
type ItemRepository interface {
	SaveItems(ctx context.Context, items []domain.Item) (int, error)
	RecentItems(ctx context.Context, since time.Time, limit int) ([]domain.Item, error)
}

// ClusteringOracle groups items into topic drafts. Results are untrusted.
type ClusteringOracle interface {
	Cluster(ctx context.Context, items []domain.Item) ([]domain.TopicDraft, error)
}

// RecordStore loads and saves the delivery record.
type RecordStore interface {
	Load(ctx context.Context) (domain.DeliveryRecord, error)
	Save(ctx context.Context, record domain.DeliveryRecord) error
}

// FeedWriter renders items and topics into published feeds.
type FeedWriter interface {
	WriteRaw(ctx context.Context, items []domain.Item) error
	WriteDigest(ctx context.Context, topics []domain.Topic, items map[string]domain.Item) error
}

// Digest is one outbound message assembled from new items.
type Digest struct {
	Subject string
	Items   []domain.Item
}

// Notifier delivers a digest to a person or a channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest Digest) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
