package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/oracle"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/textutil"
)

// Client talks to a self-hosted clustering service.
type Client struct {
	endpoint  string
	apiKey    string
	bodyChars int
	http      *http.Client
}

var _ ports.ClusteringOracle = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint:  endpoint,
		apiKey:    apiKey,
		bodyChars: oracle.DefaultBodyChars,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

type clusterItem struct {
	Ref    string `json:"ref"`
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// Cluster sends the sub-batch and decodes the service's topic list. The
// answer goes through the same tolerant parser as the LLM adapters.
func (c *Client) Cluster(ctx context.Context, items []domain.Item) ([]domain.TopicDraft, error) {
	if len(items) == 0 {
		return nil, nil
	}

	payload := struct {
		Items []clusterItem `json:"items"`
	}{Items: make([]clusterItem, 0, len(items))}
	for i, item := range items {
		payload.Items = append(payload.Items, clusterItem{
			Ref:    item.Permalink,
			Index:  i + 1,
			Title:  textutil.CollapseSpace(item.Title),
			Text:   textutil.Ellipsize(textutil.CollapseSpace(textutil.StripTags(item.BodyText)), c.bodyChars),
			Source: item.SourceName,
		})
	}

	var raw json.RawMessage
	if err := c.post(ctx, "/cluster", payload, &raw); err != nil {
		return nil, fmt.Errorf("cluster request: %w", err)
	}

	result := oracle.ParseDrafts(string(raw))
	if err := result.Err(); err != nil {
		return nil, err
	}
	return result.Drafts, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if v == nil {
		if err := resp.Body.Close(); err != nil {
			return fmt.Errorf("close response body: %w", err)
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
