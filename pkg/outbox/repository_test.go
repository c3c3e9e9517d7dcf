package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dropsaas/shopify-bridge/pkg/db/dbtest"
	"github.com/dropsaas/shopify-bridge/pkg/db/models"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
)

func seedEvent(t *testing.T, conn *gorm.DB, mutate func(*models.OutboxEvent)) models.OutboxEvent {
	t.Helper()
	event := models.OutboxEvent{
		EventType:     enums.EventShopifyOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1,"data":{}}`),
		CreatedAt:     time.Now().UTC(),
	}
	if mutate != nil {
		mutate(&event)
	}
	require.NoError(t, conn.Create(&event).Error)
	return event
}

func TestFetchUnpublishedForPublishSkipsExhaustedAndPublished(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()

	pending := seedEvent(t, conn, func(e *models.OutboxEvent) { e.CreatedAt = now.Add(-time.Minute) })
	retrying := seedEvent(t, conn, func(e *models.OutboxEvent) { e.AttemptCount = 2 })
	seedEvent(t, conn, func(e *models.OutboxEvent) { e.AttemptCount = 3 })
	seedEvent(t, conn, func(e *models.OutboxEvent) { e.PublishedAt = &now })

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, pending.ID, rows[0].ID)
	assert.Equal(t, retrying.ID, rows[1].ID)

	_, err = repo.FetchUnpublishedForPublish(nil, 10, 3)
	assert.Error(t, err)
}

func TestMarkPublishedFailedTerminal(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	published := seedEvent(t, conn, nil)
	failed := seedEvent(t, conn, nil)
	terminal := seedEvent(t, conn, nil)

	require.NoError(t, repo.MarkPublishedTx(conn, published.ID))
	require.NoError(t, repo.MarkFailedTx(conn, failed.ID, errors.New("pubsub unavailable")))
	require.NoError(t, repo.MarkTerminalTx(conn, terminal.ID, errors.New("bad payload"), 10))

	var got models.OutboxEvent
	require.NoError(t, conn.First(&got, "id = ?", published.ID).Error)
	assert.NotNil(t, got.PublishedAt)

	got = models.OutboxEvent{}
	require.NoError(t, conn.First(&got, "id = ?", failed.ID).Error)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "pubsub unavailable", *got.LastError)

	got = models.OutboxEvent{}
	require.NoError(t, conn.First(&got, "id = ?", terminal.ID).Error)
	assert.Equal(t, 10, got.AttemptCount)
	assert.Nil(t, got.PublishedAt)

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, failed.ID, rows[0].ID)
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	seedEvent(t, conn, func(e *models.OutboxEvent) { e.CreatedAt = old; e.PublishedAt = &old })
	keepRecent := seedEvent(t, conn, func(e *models.OutboxEvent) { e.PublishedAt = &recent })
	seedEvent(t, conn, func(e *models.OutboxEvent) { e.CreatedAt = old; e.AttemptCount = 10 })
	keepPending := seedEvent(t, conn, func(e *models.OutboxEvent) { e.CreatedAt = old; e.AttemptCount = 1 })

	cutoff := now.Add(-30 * 24 * time.Hour)
	deleted, err := repo.DeletePublishedBefore(context.Background(), conn, cutoff, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Order("attempt_count ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, keepRecent.ID, remaining[0].ID)
	assert.Equal(t, keepPending.ID, remaining[1].ID)
}

func TestDLQRepositoryRequeue(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	dlq := NewDLQRepository(conn)

	event := seedEvent(t, conn, func(e *models.OutboxEvent) { e.AttemptCount = 10 })
	msg := "max publish attempts reached"
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
	}))

	entries, err := dlq.List(context.Background(), enums.OutboxDLQReasonMaxAttempts, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = dlq.List(context.Background(), enums.OutboxDLQReasonNonRetryable, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, dlq.RequeueTx(conn, event.ID))
	found, err := dlq.FindByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].AttemptCount)

	assert.ErrorIs(t, dlq.RequeueTx(conn, uuid.New()), gorm.ErrRecordNotFound)
}

func TestDLQRepositoryTruncatesLongErrors(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)

	long := make([]byte, 4000)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventShopifyOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
	}))

	found, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)
}
