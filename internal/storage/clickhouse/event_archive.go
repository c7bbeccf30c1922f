package clickhouse

import (
	"context"
	"fmt"

	"pumpfun-alerts/internal/domain"
	"pumpfun-alerts/internal/storage"
)

// EventArchive implements storage.EventArchive using ClickHouse.
// creation_events is an append-only MergeTree table; duplicate rows are
// tolerated and resolved at query time.
type EventArchive struct {
	conn *Conn
}

// NewEventArchive creates a new EventArchive.
func NewEventArchive(conn *Conn) *EventArchive {
	return &EventArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchive)(nil)

// InsertBulk appends a batch of archived events.
func (a *EventArchive) InsertBulk(ctx context.Context, events []*domain.ArchivedEvent) error {
	if len(events) == 0 {
		return nil
	}

	for _, e := range events {
		if e == nil || e.Signature == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO creation_events (
			tx_signature, mint, name, symbol, uri, creator, slot, observed_at, outcome
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.Signature, e.Mint, e.Name, e.Symbol, e.URI, e.Creator,
			uint64(e.Slot), uint64(e.ObservedAt), e.Outcome,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySignature retrieves archived events for a signature, ordered by observed_at ASC.
func (a *EventArchive) GetBySignature(ctx context.Context, signature string) ([]*domain.ArchivedEvent, error) {
	query := `
		SELECT tx_signature, mint, name, symbol, uri, creator, slot, observed_at, outcome
		FROM creation_events
		WHERE tx_signature = ?
		ORDER BY observed_at ASC
	`

	rows, err := a.conn.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("query by signature: %w", err)
	}
	defer rows.Close()

	return scanArchivedEvents(rows)
}

// GetByTimeRange retrieves archived events observed within [start, end] unix ms (inclusive).
func (a *EventArchive) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ArchivedEvent, error) {
	query := `
		SELECT tx_signature, mint, name, symbol, uri, creator, slot, observed_at, outcome
		FROM creation_events
		WHERE observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`

	rows, err := a.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanArchivedEvents(rows)
}

// CountByOutcome returns the number of archived events per outcome label.
func (a *EventArchive) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT outcome, count(*) FROM creation_events
		GROUP BY outcome
	`

	rows, err := a.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by outcome: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var count uint64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		result[outcome] = int64(count)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}

	return result, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanArchivedEvents scans multiple rows into a slice.
func scanArchivedEvents(rows chRows) ([]*domain.ArchivedEvent, error) {
	var events []*domain.ArchivedEvent

	for rows.Next() {
		var e domain.ArchivedEvent
		var slot, observedAt uint64

		err := rows.Scan(
			&e.Signature, &e.Mint, &e.Name, &e.Symbol, &e.URI, &e.Creator,
			&slot, &observedAt, &e.Outcome,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archived event row: %w", err)
		}

		e.Slot = int64(slot)
		e.ObservedAt = int64(observedAt)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived event rows: %w", err)
	}

	return events, nil
}
