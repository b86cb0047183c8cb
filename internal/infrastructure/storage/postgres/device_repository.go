package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"bizsync/internal/domain/device"
)

// DeviceRepository реализация реестра устройств для PostgreSQL
type DeviceRepository struct {
	storage *Storage
	log     *slog.Logger
}

// NewDeviceRepository создает новый репозиторий устройств
func NewDeviceRepository(storage *Storage, log *slog.Logger) *DeviceRepository {
	return &DeviceRepository{
		storage: storage,
		log:     log,
	}
}

// Create сохраняет новое устройство
func (r *DeviceRepository) Create(ctx context.Context, dev *device.Device) error {
	query := `
		INSERT INTO devices (id, name, type, owner_user_id, strategy, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.storage.Pool().Exec(ctx, query,
		dev.ID,
		dev.Name,
		dev.Type,
		dev.OwnerUserID,
		dev.Strategy,
		dev.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	return nil
}

// Get возвращает устройство по id, ErrDeviceNotFound если его нет
func (r *DeviceRepository) Get(ctx context.Context, deviceID string) (*device.Device, error) {
	query := `
		SELECT id, name, type, owner_user_id, strategy, registered_at, last_sync_at
		FROM devices
		WHERE id = $1
	`

	var dev device.Device
	err := r.storage.Pool().QueryRow(ctx, query, deviceID).Scan(
		&dev.ID,
		&dev.Name,
		&dev.Type,
		&dev.OwnerUserID,
		&dev.Strategy,
		&dev.RegisteredAt,
		&dev.LastSyncAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, device.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return &dev, nil
}

// List возвращает устройства, опционально по владельцу
func (r *DeviceRepository) List(ctx context.Context, ownerUserID string) ([]device.Device, error) {
	query := `
		SELECT id, name, type, owner_user_id, strategy, registered_at, last_sync_at
		FROM devices
		WHERE ($1 = '' OR owner_user_id = $1)
		ORDER BY registered_at ASC
	`

	rows, err := r.storage.Pool().Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []device.Device
	for rows.Next() {
		var dev device.Device
		if err := rows.Scan(
			&dev.ID,
			&dev.Name,
			&dev.Type,
			&dev.OwnerUserID,
			&dev.Strategy,
			&dev.RegisteredAt,
			&dev.LastSyncAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, dev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read devices: %w", err)
	}

	return devices, nil
}

// Delete удаляет устройство, ErrDeviceNotFound если его нет
func (r *DeviceRepository) Delete(ctx context.Context, deviceID string) error {
	tag, err := r.storage.Pool().Exec(ctx, `DELETE FROM devices WHERE id = $1`, deviceID)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return device.ErrDeviceNotFound
	}

	return nil
}

// UpdateLastSync проставляет время последней синхронизации
func (r *DeviceRepository) UpdateLastSync(ctx context.Context, deviceID string, syncedAt time.Time) error {
	tag, err := r.storage.Pool().Exec(ctx,
		`UPDATE devices SET last_sync_at = $1 WHERE id = $2`,
		syncedAt, deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last sync: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return device.ErrDeviceNotFound
	}

	return nil
}

// UpdateStrategy меняет стратегию устройства по умолчанию
func (r *DeviceRepository) UpdateStrategy(ctx context.Context, deviceID string, strategy string) error {
	tag, err := r.storage.Pool().Exec(ctx,
		`UPDATE devices SET strategy = $1 WHERE id = $2`,
		strategy, deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update strategy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return device.ErrDeviceNotFound
	}

	return nil
}
