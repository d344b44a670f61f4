// Package store keeps the watcher state in SQLite: the checkpoint, the
// sent-message ledger and a log of delivered alerts.
package store

import (
	"context"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

// Store is the full state backend. It satisfies checkpoint.Store and
// notify.Ledger, and adds the delivery log the JSON backend lacks.
type Store interface {
	Load(ctx context.Context) (*model.Checkpoint, error)
	Save(ctx context.Context, lastCheck time.Time) error

	Contains(ctx context.Context, hash string) (bool, error)
	Add(ctx context.Context, hash string) error

	RecordDelivery(ctx context.Context, d model.Delivery) error
	RecentDeliveries(ctx context.Context, limit int) ([]model.Delivery, error)

	Close() error
}
