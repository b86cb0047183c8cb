package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"bizsync/internal/app/client/config"
	devicedomain "bizsync/internal/domain/device"
	syncdomain "bizsync/internal/domain/sync"
)

// App клиентское приложение: локальный кэш, HTTP клиент и сервис
// синхронизации
type App struct {
	config      *config.Config
	log         *slog.Logger
	httpClient  *httpClient
	storage     *SQLiteStorage
	syncService *SyncService
	state       *AppState
	mu          gosync.RWMutex
}

// AppState хранит состояние приложения между запусками
type AppState struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	LastSync   time.Time `json:"last_sync"`
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	state, err := loadAppState(cfg)
	if err != nil {
		log.Warn("Не удалось загрузить состояние приложения", "error", err)
		state = &AppState{}
	}

	// Инициализируем HTTP клиент
	httpCl, err := NewHTTPClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации HTTP клиента: %w", err)
	}

	// Инициализируем локальное хранилище
	storage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации локального хранилища: %w", err)
	}

	app := &App{
		config:     cfg,
		log:        log,
		httpClient: httpCl,
		storage:    storage,
		state:      state,
	}

	// Инициализируем сервис синхронизации
	app.syncService = NewSyncService(app)

	return app, nil
}

func loadAppState(cfg *config.Config) (*AppState, error) {
	if _, err := os.Stat(cfg.StatePath); os.IsNotExist(err) {
		return &AppState{}, nil
	}

	data, err := os.ReadFile(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (a *App) saveAppState() error {
	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(a.config.StatePath, data, 0600)
}

// IsRegistered проверяет, зарегистрировано ли устройство
func (a *App) IsRegistered() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.DeviceID != ""
}

// DeviceID возвращает идентификатор устройства
func (a *App) DeviceID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.DeviceID
}

// RegisterDevice регистрирует устройство на сервере; пустое имя
// заменяется на hostname машины
func (a *App) RegisterDevice(ctx context.Context, name, devType string) (string, error) {
	if a.IsRegistered() {
		return a.DeviceID(), nil
	}

	if name == "" {
		name = defaultDeviceName()
	}

	deviceID, err := a.httpClient.RegisterDevice(ctx, devicedomain.RegisterRequest{
		Name: name,
		Type: devType,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка регистрации устройства: %w", err)
	}

	a.mu.Lock()
	a.state.DeviceID = deviceID
	a.state.DeviceName = name
	if err := a.saveAppState(); err != nil {
		a.mu.Unlock()
		return "", fmt.Errorf("ошибка сохранения состояния: %w", err)
	}
	a.mu.Unlock()

	a.log.Info("Устройство зарегистрировано",
		"device_id", deviceID,
		"name", name,
	)

	return deviceID, nil
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return a.httpClient.HealthCheck(ctx)
}

// SaveLocal сохраняет локальную правку в кэш до следующего push
func (a *App) SaveLocal(table syncdomain.Table, rec syncdomain.Record) error {
	return a.storage.SaveLocal(table, rec)
}

// Sync запускает полный цикл синхронизации
func (a *App) Sync(ctx context.Context) (*SyncResult, error) {
	return a.syncService.Sync(ctx)
}

// GetSyncService возвращает сервис синхронизации
func (a *App) GetSyncService() *SyncService {
	return a.syncService
}

// GetConflicts получает конфликты с сервера
func (a *App) GetConflicts(ctx context.Context) ([]syncdomain.Conflict, error) {
	return a.httpClient.GetConflicts(ctx)
}

// ResolveConflict разрешает конфликт на сервере
func (a *App) ResolveConflict(ctx context.Context, conflictID int64, chosenVersion string) error {
	return a.httpClient.ResolveConflict(ctx, conflictID, chosenVersion)
}

// GetDevices получает список устройств
func (a *App) GetDevices(ctx context.Context) ([]devicedomain.Device, error) {
	return a.httpClient.GetDevices(ctx)
}

// RemoveDevice удаляет устройство на сервере
func (a *App) RemoveDevice(ctx context.Context, deviceID string) error {
	return a.httpClient.RemoveDevice(ctx, deviceID)
}

// DeviceStatus получает состояние устройства
func (a *App) DeviceStatus(ctx context.Context, deviceID string) (*devicedomain.StatusResponse, error) {
	return a.httpClient.DeviceStatus(ctx, deviceID)
}

// GetHistory получает журнал синхронизаций
func (a *App) GetHistory(ctx context.Context, deviceID string, limit int) ([]syncdomain.SyncLogEntry, error) {
	return a.httpClient.GetHistory(ctx, deviceID, limit)
}

// SetStrategy меняет стратегию устройства на сервере
func (a *App) SetStrategy(ctx context.Context, strategy string) error {
	if !a.IsRegistered() {
		return fmt.Errorf("устройство не зарегистрировано. Выполните: bizsync devices register")
	}
	return a.httpClient.SetStrategy(ctx, a.DeviceID(), strategy)
}

// Close освобождает ресурсы приложения
func (a *App) Close() error {
	return a.storage.Close()
}
