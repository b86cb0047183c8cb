package sync

import "context"

// Repository контракт хранилища для движка синхронизации
type Repository interface {
	// GetRecord возвращает запись по id, (nil, nil) если записи нет
	GetRecord(ctx context.Context, table Table, id string) (Record, error)

	// ChangedSince возвращает записи с updated_at строго больше since,
	// по возрастанию updated_at
	ChangedSince(ctx context.Context, table Table, since int64) ([]Record, error)

	// CountChangedSince считает записи с updated_at строго больше since
	CountChangedSince(ctx context.Context, table Table, since int64) (int, error)

	// UpsertRecord вставляет или обновляет запись, сохраняя updated_at
	// из самой записи; запись по (table, id) сериализуется хранилищем
	UpsertRecord(ctx context.Context, table Table, rec Record) error

	// SaveConflict сохраняет отложенный конфликт и проставляет ID
	SaveConflict(ctx context.Context, conflict *Conflict) error

	// PendingConflicts возвращает неразрешенные конфликты, новые первыми
	PendingConflicts(ctx context.Context) ([]Conflict, error)

	// GetConflict возвращает конфликт по id
	GetConflict(ctx context.Context, conflictID int64) (*Conflict, error)

	// ResolveConflict применяет выбранную версию к записи и помечает
	// конфликт разрешенным в одной транзакции
	ResolveConflict(ctx context.Context, conflict *Conflict, chosenVersion string, winning Record) error

	// AppendSyncLog добавляет итог операции push в журнал
	AppendSyncLog(ctx context.Context, entry *SyncLogEntry) error

	// ListSyncLog возвращает журнал синхронизаций, новые первыми
	ListSyncLog(ctx context.Context, deviceID string, limit int) ([]SyncLogEntry, error)
}

// DeviceProvider то, что движку нужно знать об устройствах;
// реализуется реестром устройств
type DeviceProvider interface {
	// StrategyFor возвращает стратегию устройства по умолчанию
	StrategyFor(ctx context.Context, deviceID string) (Strategy, error)

	// TouchLastSync фиксирует успешную синхронизацию устройства
	TouchLastSync(ctx context.Context, deviceID string) error

	// SetStrategy меняет стратегию устройства по умолчанию
	SetStrategy(ctx context.Context, deviceID string, strategy Strategy) error
}
