package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/coverage"
	"NewsDigest/internal/dedup"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
)

func TestPipelineRunsAllSteps(t *testing.T) {
	t.Parallel()

	items := []domain.Item{{ID: "1", Title: "one", Permalink: "https://e.org/1"}}
	repo := &fakeRepo{recent: items}
	feeds := &fakeFeeds{}
	notifier := &recordingNotifier{}

	p := NewPipeline(PipelineDeps{
		Collector: NewCollector(&fakeSource{items: items}, repo, nil),
		Digester:  NewDigester(repo, feeds, coverage.NewEngine(nil, coverage.Config{}, nil), DigesterConfig{}, nil),
		Sender: NewSender(&fakeSource{items: items}, &memoryRecords{}, dedup.NewStore(0, nil),
			[]ports.Notifier{notifier}, SenderConfig{}, nil),
	})

	res, err := p.RunOnce(context.Background(), time.Now())
	require.NoError(t, err)

	_, parseErr := uuid.Parse(res.RunID)
	require.NoError(t, parseErr)
	assert.Equal(t, 1, res.Collect.Saved)
	assert.Equal(t, 1, res.Digest.Topics)
	assert.Equal(t, 1, res.Send.Delivered)
}

func TestPipelineTagsEveryLogLineWithRunID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "debug", "json")

	items := []domain.Item{{ID: "1", Title: "one", Permalink: "https://e.org/1"}}
	repo := &fakeRepo{recent: items}
	p := NewPipeline(PipelineDeps{
		Collector: NewCollector(&fakeSource{items: items}, repo, logger),
		Digester:  NewDigester(repo, &fakeFeeds{}, coverage.NewEngine(nil, coverage.Config{}, logger), DigesterConfig{}, logger),
		Logger:    logger,
	})

	res, err := p.RunOnce(context.Background(), time.Now())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var bucketed bool
	for _, line := range lines {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		assert.Equal(t, res.RunID, record["run_id"], "line %s", line)
		if record["msg"] == "bucketing leftover items" {
			bucketed = true
		}
	}
	assert.True(t, bucketed, "coverage engine logged nothing")
}

func TestPipelineStopsOnFailure(t *testing.T) {
	t.Parallel()

	feeds := &fakeFeeds{}
	p := NewPipeline(PipelineDeps{
		Collector: NewCollector(&fakeSource{err: errBoom}, &fakeRepo{}, nil),
		Digester:  NewDigester(&fakeRepo{}, feeds, coverage.NewEngine(nil, coverage.Config{}, nil), DigesterConfig{}, nil),
	})

	_, err := p.RunOnce(context.Background(), time.Now())
	require.ErrorIs(t, err, errBoom)
	assert.Zero(t, feeds.calls)
}

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (m *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	m.job = job
	return nil
}

func (m *manualDriver) Stop(context.Context) error {
	m.stopped = true
	return nil
}

func TestSchedulerRunsPipelineOnTrigger(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	driver := &manualDriver{}
	p := NewPipeline(PipelineDeps{Collector: NewCollector(&fakeSource{items: []domain.Item{{ID: "x"}}}, repo, nil)})
	s := NewScheduler(driver, p)

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)
	driver.job(time.Now())
	assert.Len(t, repo.stored, 1)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}
