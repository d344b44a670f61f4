package notify

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/checkpoint"
)

// LedgerCap is the number of hashes a ledger remembers.
const LedgerCap = 100

// Ledger remembers the content hashes of recently sent messages.
type Ledger interface {
	Contains(ctx context.Context, hash string) (bool, error)
	// Add records hash as the newest entry, evicting the oldest ones past
	// LedgerCap.
	Add(ctx context.Context, hash string) error
}

// ContentHash returns the first 16 hex characters of the MD5 of text.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

type ledgerFile struct {
	Messages  []string `json:"messages"`
	UpdatedAt string   `json:"updated_at"`
}

// FileLedger keeps the hashes in a JSON file, oldest first. The whole
// file is rewritten on every Add.
type FileLedger struct {
	path string

	mu     sync.Mutex
	hashes []string
}

// OpenFileLedger loads the ledger at path. A missing file is an empty
// ledger. An unreadable one is logged and replaced on the next Add.
func OpenFileLedger(path string, logger *slog.Logger) *FileLedger {
	l := &FileLedger{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return l
	case err != nil:
		logger.Error("reading sent-message ledger", "path", path, "error", err)
		return l
	}

	var f ledgerFile
	if err := json.Unmarshal(data, &f); err != nil {
		logger.Error("parsing sent-message ledger", "path", path, "error", err)
		return l
	}
	l.hashes = f.Messages
	return l
}

// Contains reports whether hash was sent recently.
func (l *FileLedger) Contains(_ context.Context, hash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.hashes, hash), nil
}

// Add appends hash and persists the ledger.
func (l *FileLedger) Add(_ context.Context, hash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hashes = append(l.hashes, hash)
	if n := len(l.hashes); n > LedgerCap {
		l.hashes = slices.Clone(l.hashes[n-LedgerCap:])
	}
	return l.save()
}

// Hashes returns a copy of the remembered hashes, oldest first.
func (l *FileLedger) Hashes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.hashes)
}

func (l *FileLedger) save() error {
	data, err := json.MarshalIndent(ledgerFile{
		Messages:  l.hashes,
		UpdatedAt: checkpoint.FormatTimestamp(time.Now()),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	if err := checkpoint.WriteFileAtomic(l.path, data); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	return nil
}
