package device

import (
	"context"
	"time"

	"bizsync/internal/domain/sync"
)

// Repository контракт хранилища реестра устройств
type Repository interface {
	// Create сохраняет новое устройство
	Create(ctx context.Context, device *Device) error

	// Get возвращает устройство по id, ErrDeviceNotFound если его нет
	Get(ctx context.Context, deviceID string) (*Device, error)

	// List возвращает устройства, опционально по владельцу
	List(ctx context.Context, ownerUserID string) ([]Device, error)

	// Delete удаляет устройство, ErrDeviceNotFound если его нет
	Delete(ctx context.Context, deviceID string) error

	// UpdateLastSync проставляет время последней синхронизации
	UpdateLastSync(ctx context.Context, deviceID string, syncedAt time.Time) error

	// UpdateStrategy меняет стратегию устройства по умолчанию
	UpdateStrategy(ctx context.Context, deviceID string, strategy string) error
}

// ChangeCounter счетчик накопившихся изменений по таблице;
// реализуется репозиторием синхронизации
type ChangeCounter interface {
	CountChangedSince(ctx context.Context, table sync.Table, since int64) (int, error)
}
