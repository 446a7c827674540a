// Package oracle adapts a chat completion model into a clustering oracle.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/textutil"
)

// Completer sends one system + user exchange to a language model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options tune prompt construction.
type Options struct {
	SystemPrompt string
	Language     string
	BodyChars    int
}

// LLMOracle asks a language model to group items and parses its answer.
type LLMOracle struct {
	completer Completer
	opts      Options
	logger    *slog.Logger
}

var _ ports.ClusteringOracle = (*LLMOracle)(nil)

// NewLLMOracle wires a completer with prompt options.
func NewLLMOracle(completer Completer, opts Options, logger *slog.Logger) *LLMOracle {
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.BodyChars <= 0 {
		opts.BodyChars = DefaultBodyChars
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LLMOracle{completer: completer, opts: opts, logger: logger}
}

// Cluster renders the items, calls the model once and parses the drafts.
// A completion without a topic list yields ErrMalformedResponse; a well-formed
// but empty list yields no drafts and no error.
func (o *LLMOracle) Cluster(ctx context.Context, items []domain.Item) ([]domain.TopicDraft, error) {
	if o.completer == nil {
		return nil, fmt.Errorf("oracle completer is not configured")
	}
	if len(items) == 0 {
		return nil, nil
	}

	content, err := o.completer.Complete(ctx, o.opts.SystemPrompt, UserMessage(items, o.opts.BodyChars, o.opts.Language))
	if err != nil {
		return nil, fmt.Errorf("cluster completion: %w", err)
	}

	result := ParseDrafts(content)
	o.logger.Debug("oracle answered", "items", len(items), "status", result.Status.String(), "drafts", len(result.Drafts))
	if result.Status == StatusMalformed {
		o.logger.Warn("cannot parse oracle answer", "reason", result.Reason, "preview", textutil.Ellipsize(content, 200))
		return nil, result.Err()
	}
	return result.Drafts, nil
}
