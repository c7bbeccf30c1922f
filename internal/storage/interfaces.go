package storage

import (
	"context"

	"pumpfun-alerts/internal/domain"
)

// AlertStore provides access to alert history storage.
type AlertStore interface {
	// Insert adds a new alert record. Returns ErrDuplicateKey if alert_id exists.
	Insert(ctx context.Context, a *domain.AlertRecord) error

	// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, alertID string) (*domain.AlertRecord, error)

	// GetBySignature retrieves all alerts recorded for a transaction signature.
	GetBySignature(ctx context.Context, signature string) ([]*domain.AlertRecord, error)

	// GetByTimeRange retrieves alerts sent within [start, end] unix ms (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.AlertRecord, error)

	// CountSince counts alerts sent at or after the given unix ms timestamp.
	CountSince(ctx context.Context, since int64) (int64, error)
}

// EventArchive records decoded creation events and their pipeline outcome for
// offline analysis. Writes are best-effort and never block the alert path.
type EventArchive interface {
	// InsertBulk appends a batch of archived events.
	InsertBulk(ctx context.Context, events []*domain.ArchivedEvent) error
}
