package memory

import (
	"context"
	"sort"
	"sync"

	"pumpfun-alerts/internal/domain"
	"pumpfun-alerts/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
type AlertStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AlertRecord // keyed by alert_id
}

// NewAlertStore creates a new in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		data: make(map[string]*domain.AlertRecord),
	}
}

// Insert adds a new alert record. Returns ErrDuplicateKey if alert_id exists.
func (s *AlertStore) Insert(_ context.Context, a *domain.AlertRecord) error {
	if a == nil || a.AlertID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AlertID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	alertCopy := *a
	s.data[a.AlertID] = &alertCopy
	return nil
}

// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(_ context.Context, alertID string) (*domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[alertID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	alertCopy := *a
	return &alertCopy, nil
}

// GetBySignature retrieves all alerts recorded for a transaction signature.
func (s *AlertStore) GetBySignature(_ context.Context, signature string) ([]*domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AlertRecord
	for _, a := range s.data {
		if a.Signature == signature {
			alertCopy := *a
			result = append(result, &alertCopy)
		}
	}

	// Sort by sent_at ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].SentAt < result[j].SentAt
	})

	return result, nil
}

// GetByTimeRange retrieves alerts sent within [start, end] unix ms (inclusive).
func (s *AlertStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AlertRecord
	for _, a := range s.data {
		if a.SentAt >= start && a.SentAt <= end {
			alertCopy := *a
			result = append(result, &alertCopy)
		}
	}

	// Sort by sent_at ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].SentAt < result[j].SentAt
	})

	return result, nil
}

// CountSince counts alerts sent at or after the given unix ms timestamp.
func (s *AlertStore) CountSince(_ context.Context, since int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.data {
		if a.SentAt >= since {
			n++
		}
	}
	return n, nil
}

// Verify interface compliance at compile time.
var _ storage.AlertStore = (*AlertStore)(nil)
