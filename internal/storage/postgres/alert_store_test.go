package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpfun-alerts/internal/domain"
	"pumpfun-alerts/internal/storage"
)

func TestAlertStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	alert := &domain.AlertRecord{
		AlertID:     "test-alert-001",
		Signature:   "TxSig123",
		Mint:        "MintAddress123",
		Name:        "Test Token",
		Symbol:      "TEST",
		Creator:     "CreatorAddress123",
		Channel:     "telegram",
		TriggeredBy: "name contains: test",
		SentAt:      1700000000000,
	}

	// Insert
	err := store.Insert(ctx, alert)
	require.NoError(t, err)

	// GetByID
	retrieved, err := store.GetByID(ctx, "test-alert-001")
	require.NoError(t, err)

	assert.Equal(t, alert.AlertID, retrieved.AlertID)
	assert.Equal(t, alert.Signature, retrieved.Signature)
	assert.Equal(t, alert.Mint, retrieved.Mint)
	assert.Equal(t, alert.Name, retrieved.Name)
	assert.Equal(t, alert.Symbol, retrieved.Symbol)
	assert.Equal(t, alert.Creator, retrieved.Creator)
	assert.Equal(t, alert.Channel, retrieved.Channel)
	assert.Equal(t, alert.TriggeredBy, retrieved.TriggeredBy)
	assert.Equal(t, alert.SentAt, retrieved.SentAt)
	assert.NotZero(t, retrieved.CreatedAt)
}

func TestAlertStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	alert := &domain.AlertRecord{
		AlertID:   "test-alert-dup",
		Signature: "TxSig123",
		Mint:      "MintAddress123",
		Channel:   "discord",
		SentAt:    1700000000000,
	}

	// First insert should succeed
	err := store.Insert(ctx, alert)
	require.NoError(t, err)

	// Second insert should return ErrDuplicateKey
	err = store.Insert(ctx, alert)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAlertStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAlertStore_GetBySignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	alerts := []*domain.AlertRecord{
		{AlertID: "a1", Signature: "sig1", Mint: "m1", Channel: "telegram", SentAt: 2000},
		{AlertID: "a2", Signature: "sig1", Mint: "m1", Channel: "discord", SentAt: 1000},
		{AlertID: "a3", Signature: "sig2", Mint: "m2", Channel: "telegram", SentAt: 3000},
	}
	for _, a := range alerts {
		require.NoError(t, store.Insert(ctx, a))
	}

	result, err := store.GetBySignature(ctx, "sig1")
	require.NoError(t, err)
	require.Len(t, result, 2)

	// Ordered by sent_at ASC
	assert.Equal(t, "a2", result[0].AlertID)
	assert.Equal(t, "a1", result[1].AlertID)
}

func TestAlertStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		a := &domain.AlertRecord{
			AlertID:   fmt.Sprintf("a%d", i),
			Signature: fmt.Sprintf("s%d", i),
			Mint:      fmt.Sprintf("m%d", i),
			Channel:   "webhook",
			SentAt:    int64(i * 1000),
		}
		require.NoError(t, store.Insert(ctx, a))
	}

	result, err := store.GetByTimeRange(ctx, 2000, 3000)
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "a2", result[0].AlertID)
	assert.Equal(t, "a3", result[1].AlertID)
}

func TestAlertStore_CountSince(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		a := &domain.AlertRecord{
			AlertID:   fmt.Sprintf("a%d", i),
			Signature: fmt.Sprintf("s%d", i),
			Mint:      "m",
			Channel:   "telegram",
			SentAt:    int64(i * 1000),
		}
		require.NoError(t, store.Insert(ctx, a))
	}

	n, err := store.CountSince(ctx, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestAlertStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.AlertRecord{AlertID: ""})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
