package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"bizsync/internal/domain/sync"
)

// SyncRepository реализация репозитория синхронизации для PostgreSQL.
// Имена таблиц подставляются в запросы только из закрытого перечисления
// sync.Table, строки от вызывающих сюда не попадают.
type SyncRepository struct {
	storage *Storage
	log     *slog.Logger
}

// NewSyncRepository создает новый репозиторий синхронизации
func NewSyncRepository(storage *Storage, log *slog.Logger) *SyncRepository {
	return &SyncRepository{
		storage: storage,
		log:     log,
	}
}

// GetRecord возвращает запись по id, (nil, nil) если записи нет
func (r *SyncRepository) GetRecord(ctx context.Context, table sync.Table, id string) (sync.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, data, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, table)

	rec, err := scanRecord(r.storage.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return rec, nil
}

// ChangedSince возвращает записи с updated_at строго больше since,
// по возрастанию updated_at
func (r *SyncRepository) ChangedSince(ctx context.Context, table sync.Table, since int64) ([]sync.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, data, created_at, updated_at
		FROM %s
		WHERE updated_at > $1
		ORDER BY updated_at ASC
	`, table)

	rows, err := r.storage.Pool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	var records []sync.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read changes: %w", err)
	}

	return records, nil
}

// CountChangedSince считает записи с updated_at строго больше since
func (r *SyncRepository) CountChangedSince(ctx context.Context, table sync.Table, since int64) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE updated_at > $1`, table)

	var count int
	if err := r.storage.Pool().QueryRow(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count changes: %w", err)
	}

	return count, nil
}

// UpsertRecord вставляет или обновляет запись. Конкурентные записи по
// одному (table, id) сериализуются advisory-локом в рамках транзакции.
func (r *SyncRepository) UpsertRecord(ctx context.Context, table sync.Table, rec sync.Record) error {
	id, ok := rec.ID()
	if !ok {
		return sync.ErrRecordWithoutID
	}

	updatedAt, ok := rec.UpdatedAt()
	if !ok {
		updatedAt = time.Now().UnixMilli()
	}
	createdAt, ok := rec.CreatedAt()
	if !ok {
		createdAt = updatedAt
	}

	data, err := json.Marshal(payloadFields(rec))
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}

	tx, err := r.storage.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`,
		string(table)+"/"+id,
	); err != nil {
		return fmt.Errorf("failed to take record lock: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, table)

	if _, err := tx.Exec(ctx, query, id, data, createdAt, updatedAt); err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}

	return tx.Commit(ctx)
}

// SaveConflict сохраняет отложенный конфликт и проставляет ID
func (r *SyncRepository) SaveConflict(ctx context.Context, conflict *sync.Conflict) error {
	existingJSON, err := json.Marshal(conflict.ExistingData)
	if err != nil {
		return fmt.Errorf("failed to marshal existing data: %w", err)
	}
	incomingJSON, err := json.Marshal(conflict.IncomingData)
	if err != nil {
		return fmt.Errorf("failed to marshal incoming data: %w", err)
	}

	query := `
		INSERT INTO sync_conflicts
			(table_name, record_id, existing_data, incoming_data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = r.storage.Pool().QueryRow(ctx, query,
		conflict.Table,
		conflict.RecordID,
		existingJSON,
		incomingJSON,
		conflict.Status,
		conflict.CreatedAt,
	).Scan(&conflict.ID)
	if err != nil {
		return fmt.Errorf("failed to save conflict: %w", err)
	}

	return nil
}

// PendingConflicts возвращает неразрешенные конфликты, новые первыми
func (r *SyncRepository) PendingConflicts(ctx context.Context) ([]sync.Conflict, error) {
	query := `
		SELECT id, table_name, record_id, existing_data, incoming_data,
		       status, chosen_version, created_at, resolved_at
		FROM sync_conflicts
		WHERE status = $1
		ORDER BY created_at DESC
	`

	rows, err := r.storage.Pool().Query(ctx, query, sync.ConflictPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []sync.Conflict
	for rows.Next() {
		conflict, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", err)
		}
		conflicts = append(conflicts, *conflict)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conflicts: %w", err)
	}

	return conflicts, nil
}

// GetConflict возвращает конфликт по id
func (r *SyncRepository) GetConflict(ctx context.Context, conflictID int64) (*sync.Conflict, error) {
	query := `
		SELECT id, table_name, record_id, existing_data, incoming_data,
		       status, chosen_version, created_at, resolved_at
		FROM sync_conflicts
		WHERE id = $1
	`

	conflict, err := scanConflict(r.storage.Pool().QueryRow(ctx, query, conflictID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrConflictNotFound
		}
		return nil, fmt.Errorf("failed to get conflict: %w", err)
	}

	return conflict, nil
}

// ResolveConflict применяет выбранную версию к записи и помечает
// конфликт разрешенным в одной транзакции; повторное разрешение
// отсекается условием по статусу
func (r *SyncRepository) ResolveConflict(ctx context.Context, conflict *sync.Conflict, chosenVersion string, winning sync.Record) error {
	table, err := sync.ParseTable(conflict.Table)
	if err != nil {
		return err
	}

	id, ok := winning.ID()
	if !ok {
		return sync.ErrRecordWithoutID
	}
	updatedAt, ok := winning.UpdatedAt()
	if !ok {
		updatedAt = time.Now().UnixMilli()
	}
	createdAt, ok := winning.CreatedAt()
	if !ok {
		createdAt = updatedAt
	}

	data, err := json.Marshal(payloadFields(winning))
	if err != nil {
		return fmt.Errorf("failed to marshal winning data: %w", err)
	}

	tx, err := r.storage.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE sync_conflicts
		SET status = $1, chosen_version = $2, resolved_at = $3
		WHERE id = $4 AND status = $5
	`, sync.ConflictResolved, chosenVersion, time.Now(), conflict.ID, sync.ConflictPending)
	if err != nil {
		return fmt.Errorf("failed to mark conflict resolved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrConflictResolved
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s (id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, table)

	if _, err := tx.Exec(ctx, upsert, id, data, createdAt, updatedAt); err != nil {
		return fmt.Errorf("failed to apply chosen version: %w", err)
	}

	return tx.Commit(ctx)
}

// AppendSyncLog добавляет итог операции push в журнал
func (r *SyncRepository) AppendSyncLog(ctx context.Context, entry *sync.SyncLogEntry) error {
	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}

	query := `
		INSERT INTO sync_log (device_id, applied, conflicts, errors, details, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = r.storage.Pool().QueryRow(ctx, query,
		entry.DeviceID,
		entry.Applied,
		entry.Conflicts,
		entry.Errors,
		detailsJSON,
		entry.SyncedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to append sync log: %w", err)
	}

	return nil
}

// ListSyncLog возвращает журнал синхронизаций, новые первыми
func (r *SyncRepository) ListSyncLog(ctx context.Context, deviceID string, limit int) ([]sync.SyncLogEntry, error) {
	query := `
		SELECT id, device_id, applied, conflicts, errors, details, synced_at
		FROM sync_log
		WHERE ($1 = '' OR device_id = $1)
		ORDER BY synced_at DESC
		LIMIT $2
	`

	rows, err := r.storage.Pool().Query(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer rows.Close()

	var entries []sync.SyncLogEntry
	for rows.Next() {
		var entry sync.SyncLogEntry
		var detailsJSON []byte

		if err := rows.Scan(
			&entry.ID,
			&entry.DeviceID,
			&entry.Applied,
			&entry.Conflicts,
			&entry.Errors,
			&detailsJSON,
			&entry.SyncedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync log entry: %w", err)
		}

		if err := json.Unmarshal(detailsJSON, &entry.Details); err != nil {
			return nil, fmt.Errorf("failed to parse details: %w", err)
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sync log: %w", err)
	}

	return entries, nil
}

// Вспомогательные методы

// payloadFields отделяет полезные поля записи от служебных колонок
func payloadFields(rec sync.Record) map[string]any {
	payload := make(map[string]any, len(rec))
	for key, value := range rec {
		switch key {
		case "id", "created_at", "updated_at":
			continue
		}
		payload[key] = value
	}
	return payload
}

// scanRecord собирает Record из колонок id, data, created_at, updated_at
func scanRecord(row pgx.Row) (sync.Record, error) {
	var id string
	var data []byte
	var createdAt, updatedAt int64

	if err := row.Scan(&id, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rec := make(sync.Record)
	if err := json.Unmarshal(data, (*map[string]any)(&rec)); err != nil {
		return nil, fmt.Errorf("failed to parse record data: %w", err)
	}
	rec["id"] = id
	rec["created_at"] = createdAt
	rec["updated_at"] = updatedAt

	return rec, nil
}

// scanConflict собирает Conflict из строки sync_conflicts
func scanConflict(row pgx.Row) (*sync.Conflict, error) {
	var conflict sync.Conflict
	var existingJSON, incomingJSON []byte
	var chosenVersion *string
	var resolvedAt *time.Time

	if err := row.Scan(
		&conflict.ID,
		&conflict.Table,
		&conflict.RecordID,
		&existingJSON,
		&incomingJSON,
		&conflict.Status,
		&chosenVersion,
		&resolvedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(existingJSON, &conflict.ExistingData); err != nil {
		return nil, fmt.Errorf("failed to parse existing data: %w", err)
	}
	if err := json.Unmarshal(incomingJSON, &conflict.IncomingData); err != nil {
		return nil, fmt.Errorf("failed to parse incoming data: %w", err)
	}
	if chosenVersion != nil {
		conflict.ChosenVersion = *chosenVersion
	}
	conflict.ResolvedAt = resolvedAt

	return &conflict, nil
}
