package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetRecord(ctx context.Context, table Table, id string) (Record, error) {
	args := m.Called(ctx, table, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Record), args.Error(1)
}

func (m *MockRepository) ChangedSince(ctx context.Context, table Table, since int64) ([]Record, error) {
	args := m.Called(ctx, table, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Record), args.Error(1)
}

func (m *MockRepository) CountChangedSince(ctx context.Context, table Table, since int64) (int, error) {
	args := m.Called(ctx, table, since)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) UpsertRecord(ctx context.Context, table Table, rec Record) error {
	args := m.Called(ctx, table, rec)
	return args.Error(0)
}

func (m *MockRepository) SaveConflict(ctx context.Context, conflict *Conflict) error {
	args := m.Called(ctx, conflict)
	return args.Error(0)
}

func (m *MockRepository) PendingConflicts(ctx context.Context) ([]Conflict, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Conflict), args.Error(1)
}

func (m *MockRepository) GetConflict(ctx context.Context, conflictID int64) (*Conflict, error) {
	args := m.Called(ctx, conflictID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Conflict), args.Error(1)
}

func (m *MockRepository) ResolveConflict(ctx context.Context, conflict *Conflict, chosenVersion string, winning Record) error {
	args := m.Called(ctx, conflict, chosenVersion, winning)
	return args.Error(0)
}

func (m *MockRepository) AppendSyncLog(ctx context.Context, entry *SyncLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRepository) ListSyncLog(ctx context.Context, deviceID string, limit int) ([]SyncLogEntry, error) {
	args := m.Called(ctx, deviceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SyncLogEntry), args.Error(1)
}

// MockDeviceProvider is a mock implementation of the DeviceProvider interface
type MockDeviceProvider struct {
	mock.Mock
}

func (m *MockDeviceProvider) StrategyFor(ctx context.Context, deviceID string) (Strategy, error) {
	args := m.Called(ctx, deviceID)
	return args.Get(0).(Strategy), args.Error(1)
}

func (m *MockDeviceProvider) TouchLastSync(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

func (m *MockDeviceProvider) SetStrategy(ctx context.Context, deviceID string, strategy Strategy) error {
	args := m.Called(ctx, deviceID, strategy)
	return args.Error(0)
}

func newTestService(repo *MockRepository, devices *MockDeviceProvider) *Service {
	return NewService(repo, devices, slog.Default(), nil)
}

func record(id string, name string, updatedAt int64) Record {
	return Record{"id": id, "name": name, "updated_at": updatedAt}
}

func TestService_Pull(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	customers := []Record{record("c1", "A", 100), record("c2", "B", 200)}
	repo.On("ChangedSince", ctx, TableCustomers, int64(50)).Return(customers, nil)
	repo.On("ChangedSince", ctx, TableProducts, int64(50)).Return([]Record{}, nil)

	resp, err := service.Pull(ctx, PullRequest{
		DeviceID:          "dev_1",
		LastSyncTimestamp: 50,
		Tables:            []string{"customers", "products"},
	})

	assert.NoError(t, err)
	assert.Equal(t, "Ok", resp.Status)
	assert.Equal(t, 2, resp.RecordCount)
	assert.Len(t, resp.Changes["customers"], 2)
	// Empty tables are left out of the change set
	_, ok := resp.Changes["products"]
	assert.False(t, ok)
	// Timestamp is the next watermark for the device
	assert.Greater(t, resp.Timestamp, int64(0))
}

func TestService_Pull_AllTablesByDefault(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	for _, table := range Tables {
		repo.On("ChangedSince", ctx, table, int64(0)).Return([]Record{}, nil)
	}

	resp, err := service.Pull(ctx, PullRequest{DeviceID: "dev_1"})

	assert.NoError(t, err)
	assert.Equal(t, 0, resp.RecordCount)
	repo.AssertNumberOfCalls(t, "ChangedSince", len(Tables))
}

func TestService_Pull_DisallowedTable(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)

	_, err := service.Pull(context.Background(), PullRequest{
		DeviceID: "dev_1",
		Tables:   []string{"customers", "employees"},
	})

	assert.ErrorIs(t, err, ErrDisallowedTable)
	repo.AssertNotCalled(t, "ChangedSince")
}

func TestService_Push_InsertsNewRecords(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyLatestWins, nil)
	repo.On("GetRecord", ctx, TableCustomers, "c1").Return(nil, nil)
	repo.On("UpsertRecord", ctx, TableCustomers, mock.Anything).Return(nil)
	repo.On("AppendSyncLog", ctx, mock.Anything).Return(nil)

	resp, err := service.Push(ctx, PushRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {record("c1", "A", 100)}},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Applied)
	assert.Equal(t, 0, resp.Conflicts)
	assert.Equal(t, 0, resp.Errors)
	assert.Equal(t, ActionInserted, resp.Details[0].Action)
}

func TestService_Push_RequiresDeviceID(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)

	_, err := service.Push(context.Background(), PushRequest{
		Changes: ChangeSet{"customers": {record("c1", "A", 100)}},
	})

	assert.Error(t, err)
}

func TestService_Push_DisallowedTableAbortsWholeBatch(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyLatestWins, nil)

	_, err := service.Push(ctx, PushRequest{
		DeviceID: "dev_1",
		Changes: ChangeSet{
			"customers": {record("c1", "A", 100)},
			"employees": {record("e1", "X", 100)},
		},
	})

	// Even records for allowed tables must not be touched
	assert.ErrorIs(t, err, ErrDisallowedTable)
	repo.AssertNotCalled(t, "GetRecord")
	repo.AssertNotCalled(t, "UpsertRecord")
	repo.AssertNotCalled(t, "AppendSyncLog")
}

func TestService_Push_IdempotentRepush(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	// The server already holds exactly this version
	stored := record("c1", "A", 100)
	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyLatestWins, nil)
	repo.On("GetRecord", ctx, TableCustomers, "c1").Return(stored, nil)
	repo.On("UpsertRecord", ctx, TableCustomers, mock.Anything).Return(nil)
	repo.On("AppendSyncLog", ctx, mock.Anything).Return(nil)

	resp, err := service.Push(ctx, PushRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {record("c1", "A", 100)}},
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, resp.Conflicts)
	assert.Equal(t, 0, resp.Errors)
}

func TestService_Push_LatestWinsConflict(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	stored := record("c1", "old", 100)
	incoming := record("c1", "new", 200)

	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyLatestWins, nil)
	repo.On("GetRecord", ctx, TableCustomers, "c1").Return(stored, nil)
	repo.On("UpsertRecord", ctx, TableCustomers, incoming).Return(nil)
	repo.On("AppendSyncLog", ctx, mock.Anything).Return(nil)

	resp, err := service.Push(ctx, PushRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {incoming}},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Conflicts)
	assert.Equal(t, 1, resp.Applied)
	assert.Equal(t, ActionConflictResolved, resp.Details[0].Action)
}

func TestService_Push_LatestWinsKeepsNewerServerVersion(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	stored := record("c1", "server", 300)
	incoming := record("c1", "client", 200)

	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyLatestWins, nil)
	repo.On("GetRecord", ctx, TableCustomers, "c1").Return(stored, nil)
	repo.On("AppendSyncLog", ctx, mock.Anything).Return(nil)

	resp, err := service.Push(ctx, PushRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {incoming}},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Conflicts)
	assert.Equal(t, 0, resp.Applied)
	repo.AssertNotCalled(t, "UpsertRecord")
}

func TestService_Push_ManualDefersConflict(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	stored := record("c1", "server", 100)
	incoming := record("c1", "client", 200)

	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyManual, nil)
	repo.On("GetRecord", ctx, TableCustomers, "c1").Return(stored, nil)
	repo.On("SaveConflict", ctx, mock.Anything).Return(nil)
	repo.On("AppendSyncLog", ctx, mock.Anything).Return(nil)

	resp, err := service.Push(ctx, PushRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {incoming}},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Conflicts)
	// The stored record stays untouched until manual resolution
	assert.Equal(t, 0, resp.Applied)
	assert.Equal(t, ActionConflictPending, resp.Details[0].Action)
	repo.AssertNotCalled(t, "UpsertRecord")
}

func TestService_Push_StrategyOverride(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	stored := record("c1", "server", 300)
	incoming := record("c1", "client", 200)

	// Device default would keep the server version, the override forces the client one
	repo.On("GetRecord", ctx, TableCustomers, "c1").Return(stored, nil)
	repo.On("UpsertRecord", ctx, TableCustomers, incoming).Return(nil)
	repo.On("AppendSyncLog", ctx, mock.Anything).Return(nil)

	resp, err := service.Push(ctx, PushRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {incoming}},
		Strategy: "client_wins",
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Applied)
	devices.AssertNotCalled(t, "StrategyFor")
}

func TestService_Push_InvalidStrategyOverride(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)

	_, err := service.Push(context.Background(), PushRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {record("c1", "A", 100)}},
		Strategy: "newest",
	})

	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestService_Push_RecordErrorDoesNotAbortBatch(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	broken := Record{"name": "no id", "updated_at": int64(100)}
	good := record("c2", "B", 100)

	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyLatestWins, nil)
	repo.On("GetRecord", ctx, TableCustomers, "c2").Return(nil, nil)
	repo.On("UpsertRecord", ctx, TableCustomers, good).Return(nil)
	repo.On("AppendSyncLog", ctx, mock.Anything).Return(nil)

	resp, err := service.Push(ctx, PushRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {broken, good}},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Errors)
	assert.Equal(t, 1, resp.Applied)
}

func TestService_Push_StorageErrorCountsPerRecord(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyLatestWins, nil)
	repo.On("GetRecord", ctx, TableCustomers, "c1").Return(nil, errors.New("connection reset"))
	repo.On("GetRecord", ctx, TableCustomers, "c2").Return(nil, nil)
	repo.On("UpsertRecord", ctx, TableCustomers, mock.Anything).Return(nil)
	repo.On("AppendSyncLog", ctx, mock.Anything).Return(nil)

	resp, err := service.Push(ctx, PushRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {record("c1", "A", 100), record("c2", "B", 100)}},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Errors)
	assert.Equal(t, 1, resp.Applied)
	assert.Equal(t, "Ok", resp.Status)
}

func TestService_FullSync_PushBeforePull(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	incoming := record("c1", "A", 100)

	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyLatestWins, nil)
	devices.On("TouchLastSync", ctx, "dev_1").Return(nil)
	repo.On("GetRecord", ctx, TableCustomers, "c1").Return(nil, nil)
	repo.On("UpsertRecord", ctx, TableCustomers, incoming).Return(nil)
	repo.On("AppendSyncLog", ctx, mock.Anything).Return(nil)

	var pullOrder []string
	for _, table := range Tables {
		table := table
		repo.On("ChangedSince", ctx, table, int64(0)).
			Run(func(args mock.Arguments) {
				pullOrder = append(pullOrder, string(table))
				// By pull time the pushed record must already be stored
				repo.AssertCalled(t, "UpsertRecord", ctx, TableCustomers, incoming)
			}).
			Return([]Record{}, nil)
	}

	resp, err := service.FullSync(ctx, FullSyncRequest{
		DeviceID: "dev_1",
		Changes:  ChangeSet{"customers": {incoming}},
	})

	assert.NoError(t, err)
	assert.NotNil(t, resp.Push)
	assert.NotNil(t, resp.Pull)
	assert.Equal(t, 1, resp.Push.Applied)
	assert.Greater(t, resp.SyncedAt, int64(0))
	assert.Len(t, pullOrder, len(Tables))
	devices.AssertCalled(t, "TouchLastSync", ctx, "dev_1")
}

func TestService_FullSync_UnknownDevice(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	devices.On("StrategyFor", ctx, "dev_missing").Return(Strategy(""), errors.New("device not found"))

	_, err := service.FullSync(ctx, FullSyncRequest{DeviceID: "dev_missing"})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "ChangedSince")
}

func TestService_FullSync_PullOnly(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	devices.On("StrategyFor", ctx, "dev_1").Return(StrategyLatestWins, nil)
	devices.On("TouchLastSync", ctx, "dev_1").Return(nil)
	for _, table := range Tables {
		repo.On("ChangedSince", ctx, table, int64(0)).Return([]Record{}, nil)
	}

	resp, err := service.FullSync(ctx, FullSyncRequest{DeviceID: "dev_1"})

	assert.NoError(t, err)
	assert.Nil(t, resp.Push)
	assert.NotNil(t, resp.Pull)
	repo.AssertNotCalled(t, "AppendSyncLog")
}

func TestService_ResolveConflict(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	conflict := &Conflict{
		ID:           7,
		Table:        "customers",
		RecordID:     "c1",
		ExistingData: record("c1", "server", 100),
		IncomingData: record("c1", "client", 200),
		Status:       ConflictPending,
	}

	repo.On("GetConflict", ctx, int64(7)).Return(conflict, nil)
	repo.On("ResolveConflict", ctx, conflict, WinnerIncoming, conflict.IncomingData).Return(nil)

	resp, err := service.ResolveConflict(ctx, 7, ResolveConflictRequest{ChosenVersion: "incoming"})

	assert.NoError(t, err)
	assert.Equal(t, "incoming", resp.ChosenVersion)
}

func TestService_ResolveConflict_InvalidChoice(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)

	_, err := service.ResolveConflict(context.Background(), 7, ResolveConflictRequest{ChosenVersion: "merged"})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "GetConflict")
}

func TestService_ResolveConflict_AlreadyResolved(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	conflict := &Conflict{ID: 7, Status: ConflictResolved}
	repo.On("GetConflict", ctx, int64(7)).Return(conflict, nil)

	_, err := service.ResolveConflict(ctx, 7, ResolveConflictRequest{ChosenVersion: "existing"})

	assert.ErrorIs(t, err, ErrConflictResolved)
	repo.AssertNotCalled(t, "ResolveConflict")
}

func TestService_ResolveConflict_NotFound(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	repo.On("GetConflict", ctx, int64(404)).Return(nil, ErrConflictNotFound)

	_, err := service.ResolveConflict(ctx, 404, ResolveConflictRequest{ChosenVersion: "existing"})

	assert.ErrorIs(t, err, ErrConflictNotFound)
}

func TestService_History_LimitDefaults(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	repo.On("ListSyncLog", ctx, "", 50).Return([]SyncLogEntry{}, nil)
	repo.On("ListSyncLog", ctx, "dev_1", 500).Return([]SyncLogEntry{}, nil)

	_, err := service.History(ctx, "", 0)
	assert.NoError(t, err)

	// Requests above the cap are clamped
	_, err = service.History(ctx, "dev_1", 9000)
	assert.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestService_SetStrategy(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	devices.On("SetStrategy", ctx, "dev_1", StrategyManual).Return(nil)

	resp, err := service.SetStrategy(ctx, SetStrategyRequest{DeviceID: "dev_1", Strategy: "manual"})

	assert.NoError(t, err)
	assert.Equal(t, "manual", resp.Strategy)
}

func TestService_SetStrategy_Invalid(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)

	_, err := service.SetStrategy(context.Background(), SetStrategyRequest{DeviceID: "dev_1", Strategy: "ask_me"})

	assert.ErrorIs(t, err, ErrInvalidStrategy)
	devices.AssertNotCalled(t, "SetStrategy")
}

func TestService_Conflicts(t *testing.T) {
	repo := new(MockRepository)
	devices := new(MockDeviceProvider)
	service := newTestService(repo, devices)
	ctx := context.Background()

	pending := []Conflict{{ID: 1, Status: ConflictPending, CreatedAt: time.Now()}}
	repo.On("PendingConflicts", ctx).Return(pending, nil)

	resp, err := service.Conflicts(ctx)

	assert.NoError(t, err)
	assert.Len(t, resp.Data, 1)
}
