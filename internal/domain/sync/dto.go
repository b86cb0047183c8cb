package sync

// DTO (Data Transfer Objects) для API синхронизации

// PullRequest запрос изменений после водяного знака
type PullRequest struct {
	DeviceID          string   `json:"device_id" example:"dev_1f6a"`
	LastSyncTimestamp int64    `json:"last_sync_timestamp" minimum:"0" doc:"unix-миллисекунды, 0 — с начала времен"`
	Tables            []string `json:"tables,omitempty"`
}

// PullResponse изменения и новый водяной знак
type PullResponse struct {
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Timestamp   int64     `json:"timestamp,omitempty" doc:"время выполнения pull, следующий водяной знак"`
	Changes     ChangeSet `json:"changes,omitempty"`
	RecordCount int       `json:"record_count"`
}

// PushRequest пакет изменений от устройства
type PushRequest struct {
	DeviceID string    `json:"device_id" example:"dev_1f6a"`
	Changes  ChangeSet `json:"changes"`
	Strategy string    `json:"strategy,omitempty" enum:"latest_wins,server_wins,client_wins,manual" doc:"переопределяет стратегию устройства для этого push"`
}

// PushResponse итог применения пакета
type PushResponse struct {
	Status    string      `json:"status"`
	Error     string      `json:"error,omitempty"`
	Applied   int         `json:"applied"`
	Conflicts int         `json:"conflicts"`
	Errors    int         `json:"errors"`
	Details   []LogDetail `json:"details,omitempty"`
}

// FullSyncRequest push локальных изменений и следом pull серверных
type FullSyncRequest struct {
	DeviceID          string    `json:"device_id" example:"dev_1f6a"`
	LastSyncTimestamp int64     `json:"last_sync_timestamp,omitempty" minimum:"0"`
	Changes           ChangeSet `json:"changes,omitempty"`
	Tables            []string  `json:"tables,omitempty"`
	Strategy          string    `json:"strategy,omitempty" enum:"latest_wins,server_wins,client_wins,manual"`
}

// FullSyncResponse итоги обеих фаз
type FullSyncResponse struct {
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Push     *PushResponse `json:"push,omitempty"`
	Pull     *PullResponse `json:"pull,omitempty"`
	SyncedAt int64         `json:"synced_at,omitempty"`
}

// GetConflictsResponse неразрешенные конфликты
type GetConflictsResponse struct {
	Status string     `json:"status"`
	Error  string     `json:"error,omitempty"`
	Data   []Conflict `json:"data,omitempty"`
}

// ResolveConflictRequest ручное разрешение конфликта
type ResolveConflictRequest struct {
	ChosenVersion string `json:"chosen_version" enum:"existing,incoming"`
}

// ResolveConflictResponse итог ручного разрешения
type ResolveConflictResponse struct {
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	ChosenVersion string `json:"chosen_version,omitempty"`
}

// GetHistoryResponse журнал синхронизаций
type GetHistoryResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Data   []SyncLogEntry `json:"data,omitempty"`
}

// SetStrategyRequest смена стратегии устройства по умолчанию
type SetStrategyRequest struct {
	DeviceID string `json:"device_id" example:"dev_1f6a"`
	Strategy string `json:"strategy" enum:"latest_wins,server_wins,client_wins,manual"`
}

// SetStrategyResponse подтверждение смены стратегии
type SetStrategyResponse struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}
