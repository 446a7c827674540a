package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

func TestCollectorSavesOnlyNewItems(t *testing.T) {
	t.Parallel()

	source := &fakeSource{items: []domain.Item{{ID: "a"}, {ID: "b"}}}
	repo := &fakeRepo{}
	c := NewCollector(source, repo, nil)

	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CollectResult{Fetched: 2, Saved: 2}, res)

	source.items = append(source.items, domain.Item{ID: "c"})
	res, err = c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CollectResult{Fetched: 3, Saved: 1}, res)
}

func TestCollectorErrors(t *testing.T) {
	t.Parallel()

	_, err := NewCollector(&fakeSource{err: errBoom}, &fakeRepo{}, nil).Collect(context.Background())
	require.ErrorIs(t, err, errBoom)

	_, err = NewCollector(&fakeSource{items: []domain.Item{{ID: "a"}}}, &fakeRepo{err: errBoom}, nil).Collect(context.Background())
	require.ErrorIs(t, err, errBoom)

	_, err = NewCollector(nil, nil, nil).Collect(context.Background())
	require.Error(t, err)
}
