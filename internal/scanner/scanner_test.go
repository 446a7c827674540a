package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context, Request) ([]domain.Item, error) { return nil, nil }

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(namedScanner("rss"))
	reg.Register(namedScanner("htmllist"))

	s, err := reg.Resolve("rss")
	require.NoError(t, err)
	assert.Equal(t, "rss", s.Name())

	_, err = reg.Resolve("atom")
	require.Error(t, err)

	assert.Equal(t, []string{"htmllist", "rss"}, reg.Names())
}

func TestRequestOption(t *testing.T) {
	t.Parallel()

	req := Request{Options: map[string]string{"item": "article", "empty": ""}}
	assert.Equal(t, "article", req.Option("item", "li"))
	assert.Equal(t, "li", req.Option("empty", "li"))
	assert.Equal(t, "x", req.Option("missing", "x"))
}
