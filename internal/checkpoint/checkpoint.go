// Package checkpoint persists the "last successful check" timestamp the
// incremental fetcher resumes from.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

// Store loads and saves the single checkpoint of a run target.
type Store interface {
	// Load returns nil and no error when no checkpoint exists yet.
	Load(ctx context.Context) (*model.Checkpoint, error)
	Save(ctx context.Context, lastCheck time.Time) error
}

// naiveLayout is an ISO-8601 timestamp without zone, read as local time.
const naiveLayout = "2006-01-02T15:04:05.000000"

type fileState struct {
	LastCheckTime string `json:"last_check_time"`
	UpdatedAt     string `json:"updated_at"`
}

// FileStore keeps the checkpoint in a small JSON file.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the file the checkpoint is kept in.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the checkpoint file.
func (s *FileStore) Load(_ context.Context) (*model.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading checkpoint %s: %w", s.path, err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing checkpoint %s: %w", s.path, err)
	}
	if st.LastCheckTime == "" {
		return nil, nil
	}

	last, err := ParseTimestamp(st.LastCheckTime)
	if err != nil {
		return nil, fmt.Errorf("parsing last_check_time in %s: %w", s.path, err)
	}

	cp := &model.Checkpoint{LastCheckTime: last}
	if st.UpdatedAt != "" {
		if updated, err := ParseTimestamp(st.UpdatedAt); err == nil {
			cp.UpdatedAt = updated
		}
	}
	return cp, nil
}

// Save overwrites the checkpoint file. The write goes through a temporary
// file and a rename so a crash never leaves a truncated checkpoint.
func (s *FileStore) Save(_ context.Context, lastCheck time.Time) error {
	st := fileState{
		LastCheckTime: FormatTimestamp(lastCheck),
		UpdatedAt:     FormatTimestamp(s.now()),
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return WriteFileAtomic(s.path, data)
}

// FormatTimestamp renders t as a zone-less local ISO-8601 string.
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(naiveLayout)
}

// ParseTimestamp accepts both zone-less local timestamps and RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(time.Local), nil
}

// WriteFileAtomic replaces path with data through a temporary file and a
// rename, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
