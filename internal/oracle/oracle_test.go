package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	return f.reply, f.err
}

func sampleItems() []domain.Item {
	return []domain.Item{
		{Title: "Storm  hits coast", BodyText: "<p>Heavy <b>rain</b></p>", SourceName: "BBC News", Permalink: "https://bbc.test/1"},
		{Title: "Markets fall", BodyText: strings.Repeat("x", 900), SourceName: "Danas", Permalink: "https://danas.test/2"},
	}
}

func TestLLMOracleCluster(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: `{"topics":[{"title":"Weather","summary":"Rain.","links":["https://bbc.test/1", 2]}]}`}
	o := NewLLMOracle(completer, Options{Language: "Serbian"}, nil)

	drafts, err := o.Cluster(context.Background(), sampleItems())
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Weather", drafts[0].Title)
	assert.Equal(t, []string{"https://bbc.test/1", "2"}, drafts[0].MemberRefs)

	assert.Equal(t, DefaultSystemPrompt, completer.system)
	assert.Contains(t, completer.user, "Write titles and summaries in Serbian.")
	assert.Contains(t, completer.user, "ITEM 1\nSOURCE: BBC News\nTITLE: Storm hits coast\nTEXT: Heavy rain\nLINK: https://bbc.test/1")
	assert.Contains(t, completer.user, "ITEM 2")
	assert.Contains(t, completer.user, strings.Repeat("x", DefaultBodyChars)+"…")
}

func TestLLMOracleMalformed(t *testing.T) {
	t.Parallel()

	o := NewLLMOracle(&fakeCompleter{reply: "no json here"}, Options{}, nil)
	drafts, err := o.Cluster(context.Background(), sampleItems())

	assert.Nil(t, drafts)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestLLMOracleEmptyList(t *testing.T) {
	t.Parallel()

	o := NewLLMOracle(&fakeCompleter{reply: `{"topics": []}`}, Options{}, nil)
	drafts, err := o.Cluster(context.Background(), sampleItems())

	assert.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestLLMOracleTransportError(t *testing.T) {
	t.Parallel()

	boom := errors.New("503 service unavailable")
	o := NewLLMOracle(&fakeCompleter{err: boom}, Options{}, nil)
	_, err := o.Cluster(context.Background(), sampleItems())

	assert.ErrorIs(t, err, boom)
}

func TestLLMOracleSkipsEmptyBatch(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{}
	drafts, err := NewLLMOracle(completer, Options{}, nil).Cluster(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, drafts)
	assert.Zero(t, completer.calls)
}

func TestRenderItemsSeparatesBlocks(t *testing.T) {
	t.Parallel()

	out := RenderItems(sampleItems(), 10)
	parts := strings.Split(out, blockSeparator)

	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[1], "ITEM 2\n"))
	assert.Contains(t, parts[1], "TEXT: xxxxxxxxxx…\n")
}
