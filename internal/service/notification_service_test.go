package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/queue"
	"github.com/iliyamo/farmhub/internal/repository"
)

func newNotificationService(t *testing.T) (*NotificationService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNotificationService(repository.NewNotificationRepo(db)), mock
}

var notificationColumns = []string{"id", "user_id", "kind", "title", "message",
	"resource_type", "resource_id", "read_at", "created_at"}

func TestNotificationStoreEvent(t *testing.T) {
	svc, mock := newNotificationService(t)

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(uint64(5), model.NotifySupplyOrder, "New supply order", "SO-1A2B3C4D", "supply_order", uint64(12)).
		WillReturnResult(sqlmock.NewResult(40, 1))

	ev := queue.NewEvent(5, model.NotifySupplyOrder, "New supply order", "SO-1A2B3C4D", "supply_order", 12)
	require.NoError(t, svc.Store(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadIsOwnerScoped(t *testing.T) {
	svc, mock := newNotificationService(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec(`UPDATE notifications SET read_at = UTC_TIMESTAMP\(\) WHERE id=\? AND user_id=\? AND read_at IS NULL`).
		WithArgs(uint64(40), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM notifications WHERE id=\? AND user_id=\?`).
		WithArgs(uint64(40), uint64(5)).
		WillReturnRows(sqlmock.NewRows(notificationColumns).
			AddRow(40, 5, model.NotifyLabor, "Offer closed", "Request #3 started.", nil, nil, now, now))

	n, err := svc.MarkRead(ctx, 5, 40)
	require.NoError(t, err)
	assert.True(t, n.Read())

	// another user's notification matches no row
	mock.ExpectExec(`UPDATE notifications SET read_at`).
		WithArgs(uint64(40), uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM notifications WHERE id=\? AND user_id=\?`).
		WithArgs(uint64(40), uint64(6)).
		WillReturnRows(sqlmock.NewRows(notificationColumns))

	_, err = svc.MarkRead(ctx, 6, 40)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationDeleteIsOwnerScoped(t *testing.T) {
	svc, mock := newNotificationService(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM notifications WHERE id=\? AND user_id=\?`).
		WithArgs(uint64(40), uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, svc.Delete(ctx, 6, 40), repository.ErrNotFound)

	mock.ExpectExec(`DELETE FROM notifications WHERE id=\? AND user_id=\?`).
		WithArgs(uint64(40), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, svc.Delete(ctx, 5, 40))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationCounts(t *testing.T) {
	svc, mock := newNotificationService(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE user_id=\? AND read_at IS NULL`).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectExec(`UPDATE notifications SET read_at = UTC_TIMESTAMP\(\) WHERE user_id=\? AND read_at IS NULL`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	unread, err := svc.UnreadCount(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)
	marked, err := svc.MarkAllRead(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
