package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pumpfun-alerts/internal/domain"
	"pumpfun-alerts/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds a new alert record. Returns ErrDuplicateKey if alert_id exists.
func (s *AlertStore) Insert(ctx context.Context, a *domain.AlertRecord) error {
	if a == nil || a.AlertID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO alerts (
			alert_id, tx_signature, mint, name, symbol, creator, channel, triggered_by, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		a.AlertID,
		a.Signature,
		a.Mint,
		a.Name,
		a.Symbol,
		a.Creator,
		a.Channel,
		a.TriggeredBy,
		a.SentAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(ctx context.Context, alertID string) (*domain.AlertRecord, error) {
	query := `
		SELECT alert_id, tx_signature, mint, name, symbol, creator, channel, triggered_by, sent_at, created_at
		FROM alerts
		WHERE alert_id = $1
	`

	row := s.pool.QueryRow(ctx, query, alertID)
	a, err := scanAlert(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alert by id: %w", err)
	}
	return a, nil
}

// GetBySignature retrieves all alerts recorded for a transaction signature.
func (s *AlertStore) GetBySignature(ctx context.Context, signature string) ([]*domain.AlertRecord, error) {
	query := `
		SELECT alert_id, tx_signature, mint, name, symbol, creator, channel, triggered_by, sent_at, created_at
		FROM alerts
		WHERE tx_signature = $1
		ORDER BY sent_at ASC, alert_id ASC
	`

	rows, err := s.pool.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get alerts by signature: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetByTimeRange retrieves alerts sent within [start, end] unix ms (inclusive).
func (s *AlertStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.AlertRecord, error) {
	query := `
		SELECT alert_id, tx_signature, mint, name, symbol, creator, channel, triggered_by, sent_at, created_at
		FROM alerts
		WHERE sent_at >= $1 AND sent_at <= $2
		ORDER BY sent_at ASC, alert_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get alerts by time range: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// CountSince counts alerts sent at or after the given unix ms timestamp.
func (s *AlertStore) CountSince(ctx context.Context, since int64) (int64, error) {
	query := `SELECT count(*) FROM alerts WHERE sent_at >= $1`

	var n int64
	if err := s.pool.QueryRow(ctx, query, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count alerts since: %w", err)
	}
	return n, nil
}

// scanAlert scans a single row into an AlertRecord.
func scanAlert(row pgx.Row) (*domain.AlertRecord, error) {
	var a domain.AlertRecord

	err := row.Scan(
		&a.AlertID,
		&a.Signature,
		&a.Mint,
		&a.Name,
		&a.Symbol,
		&a.Creator,
		&a.Channel,
		&a.TriggeredBy,
		&a.SentAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// scanAlerts scans multiple rows into a slice of AlertRecord.
func scanAlerts(rows pgx.Rows) ([]*domain.AlertRecord, error) {
	var alerts []*domain.AlertRecord

	for rows.Next() {
		var a domain.AlertRecord

		err := rows.Scan(
			&a.AlertID,
			&a.Signature,
			&a.Mint,
			&a.Name,
			&a.Symbol,
			&a.Creator,
			&a.Channel,
			&a.TriggeredBy,
			&a.SentAt,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}

		alerts = append(alerts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}

	return alerts, nil
}
