package client

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	syncdomain "bizsync/internal/domain/sync"
)

const watermarkKey = "last_sync_timestamp"

// SQLiteStorage локальный кэш записей устройства. Записи всех
// разрешенных таблиц лежат в одной таблице records с колонкой
// table_name; флаг synced отмечает записи, дошедшие до сервера.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	storage := &SQLiteStorage{db: db}

	// Создаем таблицы
	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			table_name TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			synced INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (table_name, id)
		);

		CREATE INDEX IF NOT EXISTS idx_records_synced ON records(synced);
		CREATE INDEX IF NOT EXISTS idx_records_updated ON records(updated_at);

		CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)

	return err
}

// SaveLocal сохраняет локальную правку; запись ждет отправки на сервер
func (s *SQLiteStorage) SaveLocal(table syncdomain.Table, rec syncdomain.Record) error {
	return s.upsert(table, rec, false)
}

// ApplyServer сохраняет запись, полученную с сервера
func (s *SQLiteStorage) ApplyServer(table syncdomain.Table, rec syncdomain.Record) error {
	return s.upsert(table, rec, true)
}

func (s *SQLiteStorage) upsert(table syncdomain.Table, rec syncdomain.Record, synced bool) error {
	id, ok := rec.ID()
	if !ok {
		return syncdomain.ErrRecordWithoutID
	}
	updatedAt, _ := rec.UpdatedAt()
	createdAt, ok := rec.CreatedAt()
	if !ok {
		createdAt = updatedAt
	}

	data, err := json.Marshal(map[string]any(rec))
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO records (table_name, id, data, created_at, updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (table_name, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at,
			synced = excluded.synced
	`, string(table), id, string(data), createdAt, updatedAt, synced)
	if err != nil {
		return fmt.Errorf("ошибка сохранения записи: %w", err)
	}

	return nil
}

// GetRecord возвращает запись по таблице и id, (nil, nil) если ее нет
func (s *SQLiteStorage) GetRecord(table syncdomain.Table, id string) (syncdomain.Record, error) {
	var data string
	var createdAt, updatedAt int64

	err := s.db.QueryRow(`
		SELECT data, created_at, updated_at
		FROM records
		WHERE table_name = ? AND id = ?
	`, string(table), id).Scan(&data, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}

	return decodeRecord(data, id, createdAt, updatedAt)
}

// UnsyncedChanges собирает неотправленные правки в пакет для push,
// по возрастанию updated_at внутри каждой таблицы
func (s *SQLiteStorage) UnsyncedChanges() (syncdomain.ChangeSet, error) {
	rows, err := s.db.Query(`
		SELECT table_name, id, data, created_at, updated_at
		FROM records
		WHERE synced = 0
		ORDER BY table_name, updated_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса локальных изменений: %w", err)
	}
	defer rows.Close()

	changes := make(syncdomain.ChangeSet)
	for rows.Next() {
		var table, id, data string
		var createdAt, updatedAt int64

		if err := rows.Scan(&table, &id, &data, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}

		rec, err := decodeRecord(data, id, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		changes[table] = append(changes[table], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения локальных изменений: %w", err)
	}

	return changes, nil
}

// MarkSynced помечает запись как дошедшую до сервера
func (s *SQLiteStorage) MarkSynced(table syncdomain.Table, id string) error {
	_, err := s.db.Exec(`
		UPDATE records SET synced = 1 WHERE table_name = ? AND id = ?
	`, string(table), id)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса синхронизации: %w", err)
	}

	return nil
}

// Watermark возвращает водяной знак последнего pull, 0 если его еще нет
func (s *SQLiteStorage) Watermark() (int64, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, watermarkKey).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения водяного знака: %w", err)
	}

	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ошибка парсинга водяного знака: %w", err)
	}

	return ts, nil
}

// SetWatermark сохраняет водяной знак, выданный сервером
func (s *SQLiteStorage) SetWatermark(ts int64) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, watermarkKey, strconv.FormatInt(ts, 10))
	if err != nil {
		return fmt.Errorf("ошибка сохранения водяного знака: %w", err)
	}

	return nil
}

// CountRecords считает записи в локальном кэше
func (s *SQLiteStorage) CountRecords() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}

	return count, nil
}

// CountUnsynced считает неотправленные правки
func (s *SQLiteStorage) CountUnsynced() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM records WHERE synced = 0").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}

	return count, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// decodeRecord восстанавливает запись из строки кэша; колонки считаются
// авторитетнее полей внутри JSON
func decodeRecord(data, id string, createdAt, updatedAt int64) (syncdomain.Record, error) {
	rec := make(syncdomain.Record)
	if err := json.Unmarshal([]byte(data), (*map[string]any)(&rec)); err != nil {
		return nil, fmt.Errorf("ошибка парсинга записи: %w", err)
	}
	rec["id"] = id
	rec["created_at"] = createdAt
	rec["updated_at"] = updatedAt

	return rec, nil
}
