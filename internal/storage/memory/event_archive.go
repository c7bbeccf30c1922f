package memory

import (
	"context"
	"sync"

	"pumpfun-alerts/internal/domain"
	"pumpfun-alerts/internal/storage"
)

// EventArchive is an in-memory implementation of storage.EventArchive.
type EventArchive struct {
	mu     sync.RWMutex
	events []*domain.ArchivedEvent
}

// NewEventArchive creates a new in-memory event archive.
func NewEventArchive() *EventArchive {
	return &EventArchive{}
}

// InsertBulk appends a batch of archived events.
func (a *EventArchive) InsertBulk(_ context.Context, events []*domain.ArchivedEvent) error {
	for _, e := range events {
		if e == nil || e.Signature == "" {
			return storage.ErrInvalidInput
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range events {
		eventCopy := *e
		a.events = append(a.events, &eventCopy)
	}
	return nil
}

// All returns a copy of every archived event in insertion order.
func (a *EventArchive) All() []*domain.ArchivedEvent {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]*domain.ArchivedEvent, 0, len(a.events))
	for _, e := range a.events {
		eventCopy := *e
		result = append(result, &eventCopy)
	}
	return result
}

// Verify interface compliance at compile time.
var _ storage.EventArchive = (*EventArchive)(nil)
