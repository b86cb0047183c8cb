//реестр устройств малого бизнеса;
//прием и выдача изменений по вайтлисту таблиц;
//разрешение конфликтов по стратегии устройства;
//журнал синхронизаций и ручное разрешение конфликтов.

//POST   /api/devices               # Регистрация устройства
//GET    /api/devices               # Список устройств
//DELETE /api/devices/{id}          # Удаление устройства
//GET    /api/devices/{id}/status   # Состояние устройства
//POST   /api/sync/pull             # Получить изменения
//POST   /api/sync/push             # Отправить изменения
//POST   /api/sync/full             # Полный цикл синхронизации
//GET    /api/sync/conflicts        # Неразрешенные конфликты
//POST   /api/sync/conflicts/{id}/resolve # Ручное разрешение
//GET    /api/sync/history          # Журнал синхронизаций
//POST   /api/sync/strategy         # Смена стратегии устройства

package api

import (
	deviceAPI "bizsync/internal/app/server/api/http/device"
	healthAPI "bizsync/internal/app/server/api/http/health"
	"bizsync/internal/app/server/api/http/middleware"
	"bizsync/internal/app/server/api/http/middleware/logger"
	syncAPI "bizsync/internal/app/server/api/http/sync"
	"bizsync/internal/domain/device"
	"bizsync/internal/domain/sync"
	"bizsync/internal/infrastructure/storage/postgres"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health *healthAPI.Handler
	Device *deviceAPI.Handler
	Sync   *syncAPI.Handler
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register
func New(storage *postgres.Storage, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Bizsync API", "1.0.0")

	API := humachi.New(mux, config)

	h := handlers(storage, log)
	h.Health.SetupRoutes(API)
	h.Device.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(storage *postgres.Storage, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	// Репозиторий синхронизации заодно считает накопившиеся изменения
	// для статуса устройств
	syncRepo := postgres.NewSyncRepository(storage, log)
	deviceRepo := postgres.NewDeviceRepository(storage, log)

	deviceService := device.NewService(deviceRepo, syncRepo, log)
	middlewares.Add(loggerMW.Middleware())
	deviceHandler := deviceAPI.NewHandler(deviceService, log, middlewares.GetAllAndClear())

	syncService := sync.NewService(syncRepo, deviceService, log, nil)
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Device: deviceHandler,
		Sync:   syncHandler,
	}
}
