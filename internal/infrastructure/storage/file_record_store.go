package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// ErrCorruptRecord marks a stored delivery record that could not be decoded.
var ErrCorruptRecord = errors.New("corrupt delivery record")

// FileRecordStore keeps the delivery record in a small JSON state file,
// compatible with the {"sent_links": [...], "last_sent_iso": "..."} layout.
type FileRecordStore struct {
	path string
}

var _ ports.RecordStore = (*FileRecordStore)(nil)

type fileState struct {
	SentLinks   []string `json:"sent_links"`
	LastSentISO string   `json:"last_sent_iso"`
}

// NewFileRecordStore points at path; the file is created on first Save.
func NewFileRecordStore(path string) *FileRecordStore {
	return &FileRecordStore{path: path}
}

// Load returns an empty record when the file does not exist and
// ErrCorruptRecord when it cannot be decoded.
func (s *FileRecordStore) Load(_ context.Context) (domain.DeliveryRecord, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.DeliveryRecord{}, nil
	}
	if err != nil {
		return domain.DeliveryRecord{}, fmt.Errorf("read state %s: %w", s.path, err)
	}

	var state fileState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.DeliveryRecord{}, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, s.path, err)
	}

	record := domain.DeliveryRecord{Keys: state.SentLinks}
	if state.LastSentISO != "" {
		ts, err := time.Parse(time.RFC3339, state.LastSentISO)
		if err != nil {
			return domain.DeliveryRecord{}, fmt.Errorf("%w: last_sent_iso: %v", ErrCorruptRecord, err)
		}
		record.LastSentAt = ts
	}
	return record, nil
}

// Save writes the record through a temp file and rename.
func (s *FileRecordStore) Save(_ context.Context, record domain.DeliveryRecord) error {
	state := fileState{SentLinks: record.Keys}
	if state.SentLinks == nil {
		state.SentLinks = []string{}
	}
	if !record.LastSentAt.IsZero() {
		state.LastSentISO = record.LastSentAt.Format(time.RFC3339)
	}

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
