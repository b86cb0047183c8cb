package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	syncdomain "bizsync/internal/domain/sync"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	storage, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return storage
}

func testRecord(id string, updatedAt int64) syncdomain.Record {
	return syncdomain.Record{
		"id":         id,
		"name":       "Иванов Иван",
		"created_at": updatedAt,
		"updated_at": updatedAt,
	}
}

func TestSQLiteStorage_Watermark(t *testing.T) {
	storage := newTestStorage(t)

	// Fresh storage starts from the epoch
	ts, err := storage.Watermark()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	require.NoError(t, storage.SetWatermark(1700000000123))

	ts, err = storage.Watermark()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts)

	// Overwrite keeps the latest value
	require.NoError(t, storage.SetWatermark(1700000999999))

	ts, err = storage.Watermark()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000999999), ts)
}

func TestSQLiteStorage_LocalEditsQueueForPush(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveLocal(syncdomain.TableCustomers, testRecord("c1", 100)))
	require.NoError(t, storage.SaveLocal(syncdomain.TableCustomers, testRecord("c2", 200)))
	require.NoError(t, storage.SaveLocal(syncdomain.TableProducts, testRecord("p1", 150)))

	changes, err := storage.UnsyncedChanges()
	require.NoError(t, err)

	assert.Len(t, changes["customers"], 2)
	assert.Len(t, changes["products"], 1)

	// Records within a table come in updated_at order
	firstID, _ := changes["customers"][0].ID()
	assert.Equal(t, "c1", firstID)
}

func TestSQLiteStorage_ServerRecordsAreNotQueued(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.ApplyServer(syncdomain.TableInvoices, testRecord("i1", 300)))

	changes, err := storage.UnsyncedChanges()
	require.NoError(t, err)
	assert.Empty(t, changes)

	rec, err := storage.GetRecord(syncdomain.TableInvoices, "i1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Иванов Иван", rec["name"])
}

func TestSQLiteStorage_MarkSynced(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveLocal(syncdomain.TableCustomers, testRecord("c1", 100)))

	count, err := storage.CountUnsynced()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, storage.MarkSynced(syncdomain.TableCustomers, "c1"))

	count, err = storage.CountUnsynced()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLiteStorage_RecordRoundTrip(t *testing.T) {
	storage := newTestStorage(t)

	rec := syncdomain.Record{
		"id":         "c1",
		"name":       "Петров Петр",
		"phone":      "+7 900 000-00-00",
		"created_at": int64(50),
		"updated_at": int64(100),
	}
	require.NoError(t, storage.SaveLocal(syncdomain.TableCustomers, rec))

	got, err := storage.GetRecord(syncdomain.TableCustomers, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)

	id, ok := got.ID()
	require.True(t, ok)
	assert.Equal(t, "c1", id)

	updatedAt, ok := got.UpdatedAt()
	require.True(t, ok)
	assert.Equal(t, int64(100), updatedAt)

	assert.Equal(t, "Петров Петр", got["name"])
	assert.Equal(t, "+7 900 000-00-00", got["phone"])
}

func TestSyncService_ApplyServerChanges(t *testing.T) {
	storage := newTestStorage(t)
	app := &App{log: slog.Default(), storage: storage, state: &AppState{DeviceID: "dev_test"}}
	service := NewSyncService(app)

	changes := syncdomain.ChangeSet{
		"customers": {testRecord("c1", 100), testRecord("c2", 200)},
		"products":  {testRecord("p1", 150)},
	}

	applied, err := service.applyServerChanges(changes)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	// Applied server records must not be queued for the next push
	queued, err := storage.UnsyncedChanges()
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestSyncService_ApplyServerChanges_UnknownTable(t *testing.T) {
	storage := newTestStorage(t)
	app := &App{log: slog.Default(), storage: storage, state: &AppState{DeviceID: "dev_test"}}
	service := NewSyncService(app)

	changes := syncdomain.ChangeSet{
		"employees": {testRecord("e1", 100)},
	}

	_, err := service.applyServerChanges(changes)
	assert.Error(t, err)
	assert.ErrorIs(t, err, syncdomain.ErrDisallowedTable)
}

func TestSyncService_MarkDelivered(t *testing.T) {
	storage := newTestStorage(t)
	app := &App{log: slog.Default(), storage: storage, state: &AppState{DeviceID: "dev_test"}}
	service := NewSyncService(app)

	require.NoError(t, storage.SaveLocal(syncdomain.TableCustomers, testRecord("c1", 100)))
	require.NoError(t, storage.SaveLocal(syncdomain.TableCustomers, testRecord("c2", 200)))

	// c1 accepted, c2 failed: only c1 leaves the queue
	service.markDelivered([]syncdomain.LogDetail{
		{Table: "customers", RecordID: "c1", Action: syncdomain.ActionInserted},
		{Table: "customers", RecordID: "c2", Action: syncdomain.ActionError, Error: "boom"},
	})

	count, err := storage.CountUnsynced()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	changes, err := storage.UnsyncedChanges()
	require.NoError(t, err)
	remainingID, _ := changes["customers"][0].ID()
	assert.Equal(t, "c2", remainingID)
}
