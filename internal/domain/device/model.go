package device

import "time"

// Device зарегистрированное устройство синхронизации
type Device struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"` // mobile, desktop, kiosk
	OwnerUserID  string     `json:"owner_user_id,omitempty"`
	Strategy     string     `json:"strategy"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
}

// Статусы устройства относительно центрального хранилища
const (
	StatusSynced    = "synced"
	StatusOutOfSync = "out_of_sync"
)
