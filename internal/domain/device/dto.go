package device

// DTO (Data Transfer Objects) для API устройств

// RegisterRequest регистрация нового устройства
type RegisterRequest struct {
	Name        string `json:"name" minLength:"1" example:"Кассовый киоск №2"`
	Type        string `json:"type" example:"kiosk"`
	OwnerUserID string `json:"owner_user_id,omitempty"`
}

// RegisterResponse результат регистрации
type RegisterResponse struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
}

// ListResponse список устройств
type ListResponse struct {
	Status string   `json:"status"`
	Error  string   `json:"error,omitempty"`
	Data   []Device `json:"data,omitempty"`
}

// RemoveResponse результат удаления устройства
type RemoveResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusResponse состояние устройства относительно хранилища
type StatusResponse struct {
	Status         string  `json:"status"`
	Error          string  `json:"error,omitempty"`
	Device         *Device `json:"device,omitempty"`
	PendingChanges int     `json:"pending_changes"`
	SyncState      string  `json:"sync_state,omitempty" enum:"synced,out_of_sync"`
}
