package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsDigest/internal/logging"
)

// PipelineDeps wires the three steps into the end-to-end workflow.
type PipelineDeps struct {
	Collector *Collector
	Digester  *Digester
	Sender    *Sender
	Logger    *slog.Logger
}

// RunResult aggregates the step results of one pipeline run.
type RunResult struct {
	RunID   string
	Collect CollectResult
	Digest  DigestResult
	Send    SendResult
}

// Pipeline implements the collect, digest and send workflow.
type Pipeline struct {
	collector *Collector
	digester  *Digester
	sender    *Sender
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		collector: deps.Collector,
		digester:  deps.Digester,
		sender:    deps.Sender,
		logger:    logging.OrDiscard(deps.Logger).With("component", "pipeline"),
	}
}

// RunOnce runs every configured step in order. A failing step stops the run;
// steps that are not wired are skipped.
func (p *Pipeline) RunOnce(ctx context.Context, trigger time.Time) (RunResult, error) {
	result := RunResult{RunID: uuid.NewString()}
	ctx = logging.WithAttrs(ctx, "run_id", result.RunID)
	log := logging.Scoped(ctx, p.logger)
	log.Info("pipeline started", "trigger", trigger.Format(time.RFC3339))

	if p.collector != nil {
		res, err := p.collector.Collect(ctx)
		result.Collect = res
		if err != nil {
			log.Error("collect failed", "error", err)
			return result, fmt.Errorf("collect: %w", err)
		}
	}

	if p.digester != nil {
		res, err := p.digester.Digest(ctx)
		result.Digest = res
		if err != nil {
			log.Error("digest failed", "error", err)
			return result, fmt.Errorf("digest: %w", err)
		}
	}

	if p.sender != nil {
		res, err := p.sender.Send(ctx)
		result.Send = res
		if err != nil {
			log.Error("send failed", "error", err)
			return result, fmt.Errorf("send: %w", err)
		}
	}

	log.Info("pipeline finished",
		"saved", result.Collect.Saved,
		"topics", result.Digest.Topics,
		"delivered", result.Send.Delivered)
	return result, nil
}
