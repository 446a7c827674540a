package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"NewsDigest/internal/domain"
)

// ErrMalformedResponse reports a completion that holds no usable topic list.
var ErrMalformedResponse = errors.New("malformed oracle response")

var (
	codeFenceExpr     = regexp.MustCompile("(?s)```(?:json|javascript|js)?\\s*\\n?(.*?)\\n?```")
	trailingCommaExpr = regexp.MustCompile(`,(\s*[}\]])`)
)

// Status tags the outcome of parsing a completion.
type Status int

const (
	StatusMalformed Status = iota
	StatusEmpty
	StatusDrafts
)

func (s Status) String() string {
	switch s {
	case StatusDrafts:
		return "drafts"
	case StatusEmpty:
		return "empty"
	default:
		return "malformed"
	}
}

// ParseResult is the tagged outcome of ParseDrafts.
type ParseResult struct {
	Status Status
	Drafts []domain.TopicDraft
	Reason string
}

// Err converts a non-draft result into an error for callers that only care
// whether drafts were produced.
func (r ParseResult) Err() error {
	if r.Status == StatusMalformed {
		return fmt.Errorf("%w: %s", ErrMalformedResponse, r.Reason)
	}
	return nil
}

// rawTopic accepts the field spellings models use for a topic object.
type rawTopic struct {
	Title   string          `json:"title"`
	Summary string          `json:"summary"`
	Links   json.RawMessage `json:"links"`
	Members json.RawMessage `json:"members"`
	Items   json.RawMessage `json:"items"`
	IDs     json.RawMessage `json:"ids"`
}

// ParseDrafts reads a completion into topic drafts. It tolerates code fences,
// trailing commas and prose around the JSON document, and never panics.
func ParseDrafts(text string) ParseResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ParseResult{Status: StatusMalformed, Reason: "empty completion"}
	}

	var (
		doc     json.RawMessage
		lastErr error
	)
	for _, candidate := range cleanups(trimmed) {
		if lastErr = json.Unmarshal([]byte(candidate), &doc); lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return ParseResult{Status: StatusMalformed, Reason: lastErr.Error()}
	}

	list, err := topicList(doc)
	if err != nil {
		return ParseResult{Status: StatusMalformed, Reason: err.Error()}
	}

	drafts := make([]domain.TopicDraft, 0, len(list))
	for _, raw := range list {
		d, ok := decodeTopic(raw)
		if !ok {
			continue
		}
		drafts = append(drafts, d)
	}

	if len(drafts) == 0 {
		return ParseResult{Status: StatusEmpty}
	}
	return ParseResult{Status: StatusDrafts, Drafts: drafts}
}

// cleanups yields progressively more aggressive repairs of the text.
func cleanups(text string) []string {
	out := []string{text}

	if m := codeFenceExpr.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}

	last := out[len(out)-1]
	out = append(out, trailingCommaExpr.ReplaceAllString(last, "$1"))

	if start, end := strings.Index(last, "{"), strings.LastIndex(last, "}"); start != -1 && end > start {
		out = append(out, trailingCommaExpr.ReplaceAllString(last[start:end+1], "$1"))
	}
	if start, end := strings.Index(last, "["), strings.LastIndex(last, "]"); start != -1 && end > start {
		out = append(out, trailingCommaExpr.ReplaceAllString(last[start:end+1], "$1"))
	}
	return out
}

func topicList(doc json.RawMessage) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(doc, &list); err == nil {
		return list, nil
	}

	var wrapper struct {
		Topics *json.RawMessage `json:"topics"`
	}
	if err := json.Unmarshal(doc, &wrapper); err != nil {
		return nil, fmt.Errorf("unexpected document: %w", err)
	}
	if wrapper.Topics == nil {
		return nil, errors.New("no topics field")
	}
	if err := json.Unmarshal(*wrapper.Topics, &list); err != nil {
		return nil, fmt.Errorf("topics is not a list: %w", err)
	}
	return list, nil
}

func decodeTopic(raw json.RawMessage) (domain.TopicDraft, bool) {
	var title string
	if err := json.Unmarshal(raw, &title); err == nil {
		title = strings.TrimSpace(title)
		return domain.TopicDraft{Title: title, Summary: title}, title != ""
	}

	var t rawTopic
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.TopicDraft{}, false
	}

	var refs []string
	for _, field := range []json.RawMessage{t.Links, t.Members, t.Items, t.IDs} {
		refs = append(refs, decodeRefs(field)...)
	}

	return domain.TopicDraft{
		Title:      strings.TrimSpace(t.Title),
		Summary:    strings.TrimSpace(t.Summary),
		MemberRefs: refs,
	}, true
}

// decodeRefs reads a list whose entries may be strings or numbers.
func decodeRefs(field json.RawMessage) []string {
	if len(field) == 0 {
		return nil
	}

	var values []any
	if err := json.Unmarshal(field, &values); err != nil {
		return nil
	}

	refs := make([]string, 0, len(values))
	for _, v := range values {
		switch ref := v.(type) {
		case string:
			if s := strings.TrimSpace(ref); s != "" {
				refs = append(refs, s)
			}
		case float64:
			if ref == float64(int64(ref)) {
				refs = append(refs, strconv.FormatInt(int64(ref), 10))
			}
		}
	}
	return refs
}
