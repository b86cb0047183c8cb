package sync

import (
	"encoding/json"
	"strconv"
	"time"
)

// Record запись таблицы в обобщенном виде: карта полей с обязательными
// id и updated_at (unix-миллисекунды, выставляет хранилище)
type Record map[string]any

// ID возвращает идентификатор записи
func (r Record) ID() (string, bool) {
	v, ok := r["id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// UpdatedAt возвращает метку изменения записи в unix-миллисекундах
func (r Record) UpdatedAt() (int64, bool) {
	return timestampField(r, "updated_at")
}

// CreatedAt возвращает метку создания записи в unix-миллисекундах
func (r Record) CreatedAt() (int64, bool) {
	return timestampField(r, "created_at")
}

// timestampField достает числовую метку времени: после encoding/json числа
// приходят как float64, из других источников как int64/json.Number/строка
func timestampField(r Record, key string) (int64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ChangeSet изменения, сгруппированные по таблицам; не персистится
type ChangeSet map[string][]Record

// Статусы конфликта
const (
	ConflictPending  = "pending"
	ConflictResolved = "resolved"
)

// Выбираемые версии при разрешении конфликта
const (
	WinnerExisting = "existing"
	WinnerIncoming = "incoming"
	WinnerPending  = "pending"
)

// Conflict конфликт синхронизации, отложенный или разрешенный вручную
type Conflict struct {
	ID            int64      `json:"id"`
	Table         string     `json:"table"`
	RecordID      string     `json:"record_id"`
	ExistingData  Record     `json:"existing_data"`
	IncomingData  Record     `json:"incoming_data"`
	Status        string     `json:"status" enum:"pending,resolved"`
	ChosenVersion string     `json:"chosen_version,omitempty" enum:"existing,incoming"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// Действия в деталях журнала синхронизации
const (
	ActionInserted         = "inserted"
	ActionUpdated          = "updated"
	ActionConflictResolved = "conflict_resolved"
	ActionConflictPending  = "conflict_pending"
	ActionError            = "error"
)

// LogDetail исход обработки одной записи внутри push
type LogDetail struct {
	Table    string `json:"table"`
	RecordID string `json:"record_id,omitempty"`
	Action   string `json:"action"`
	Strategy string `json:"strategy,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SyncLogEntry итог одной операции push, только добавляется
type SyncLogEntry struct {
	ID        int64       `json:"id"`
	DeviceID  string      `json:"device_id"`
	Applied   int         `json:"applied"`
	Conflicts int         `json:"conflicts"`
	Errors    int         `json:"errors"`
	Details   []LogDetail `json:"details"`
	SyncedAt  time.Time   `json:"synced_at"`
}
