package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

// ledgerCap matches the JSON ledger.
const ledgerCap = 100

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer, and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Load returns the stored checkpoint, or nil on a fresh database.
func (s *SQLiteStore) Load(ctx context.Context) (*model.Checkpoint, error) {
	var row struct {
		LastCheckTime time.Time `db:"last_check_time"`
		UpdatedAt     time.Time `db:"updated_at"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT last_check_time, updated_at FROM checkpoints WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	return &model.Checkpoint{
		LastCheckTime: row.LastCheckTime.In(time.Local),
		UpdatedAt:     row.UpdatedAt.In(time.Local),
	}, nil
}

// Save stores lastCheck as the checkpoint.
func (s *SQLiteStore) Save(ctx context.Context, lastCheck time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (id, last_check_time, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_check_time = excluded.last_check_time,
			updated_at = excluded.updated_at`,
		lastCheck.UTC(), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// Contains reports whether hash is in the sent-message ledger.
func (s *SQLiteStore) Contains(ctx context.Context, hash string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM sent_messages WHERE hash = ?", hash); err != nil {
		return false, fmt.Errorf("looking up hash %s: %w", hash, err)
	}
	return n > 0, nil
}

// Add records hash as the newest ledger entry and trims the ledger to
// its cap.
func (s *SQLiteStore) Add(ctx context.Context, hash string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sent_messages WHERE hash = ?", hash); err != nil {
		return fmt.Errorf("replacing hash %s: %w", hash, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sent_messages (hash, sent_at) VALUES (?, ?)", hash, s.now().UTC()); err != nil {
		return fmt.Errorf("inserting hash %s: %w", hash, err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM sent_messages WHERE seq NOT IN (
			SELECT seq FROM sent_messages ORDER BY seq DESC LIMIT ?
		)`, ledgerCap); err != nil {
		return fmt.Errorf("trimming ledger: %w", err)
	}

	return tx.Commit()
}

// Hashes returns the ledger oldest first.
func (s *SQLiteStore) Hashes(ctx context.Context) ([]string, error) {
	var hashes []string
	if err := s.db.SelectContext(ctx, &hashes,
		"SELECT hash FROM sent_messages ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	return hashes, nil
}

// RecordDelivery appends d to the delivery log. A missing ID or SentAt
// is filled in.
func (s *SQLiteStore) RecordDelivery(ctx context.Context, d model.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.SentAt.IsZero() {
		d.SentAt = s.now()
	}
	d.SentAt = d.SentAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO deliveries (
			id, subject, operator, work_type,
			start_time, end_time, email_date, sent_at
		) VALUES (
			:id, :subject, :operator, :work_type,
			:start_time, :end_time, :email_date, :sent_at
		)`, d)
	if err != nil {
		return fmt.Errorf("recording delivery %s: %w", d.ID, err)
	}
	return nil
}

// RecentDeliveries returns up to limit deliveries, newest first.
func (s *SQLiteStore) RecentDeliveries(ctx context.Context, limit int) ([]model.Delivery, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []model.Delivery
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, subject, operator, work_type, start_time, end_time, email_date, sent_at
		FROM deliveries
		ORDER BY sent_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	for i := range out {
		out[i].SentAt = out[i].SentAt.In(time.Local)
	}
	return out, nil
}
