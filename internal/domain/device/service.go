package device

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"bizsync/internal/domain/sync"
)

// Servicer интерфейс реестра устройств
type Servicer interface {
	// Register регистрирует новое устройство и выдает ему токен
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)

	// List возвращает устройства, опционально по владельцу
	List(ctx context.Context, ownerUserID string) (*ListResponse, error)

	// Remove удаляет устройство из реестра
	Remove(ctx context.Context, deviceID string) (*RemoveResponse, error)

	// Status возвращает состояние устройства и число накопившихся изменений
	Status(ctx context.Context, deviceID string) (*StatusResponse, error)
}

// Service реализация реестра устройств
type Service struct {
	repo    Repository
	counter ChangeCounter
	log     *slog.Logger
}

// NewService создает новый реестр устройств
func NewService(repo Repository, counter ChangeCounter, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		counter: counter,
		log:     log,
	}
}

// Register регистрирует новое устройство и выдает ему токен
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("device name is required")
	}

	dev := &Device{
		ID:           "dev_" + uuid.NewString(),
		Name:         req.Name,
		Type:         req.Type,
		OwnerUserID:  req.OwnerUserID,
		Strategy:     string(sync.DefaultStrategy),
		RegisteredAt: time.Now(),
	}

	if err := s.repo.Create(ctx, dev); err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	s.log.Info("Device registered",
		slog.String("device_id", dev.ID),
		slog.String("name", dev.Name),
		slog.String("type", dev.Type),
	)

	return &RegisterResponse{
		Status:   "Ok",
		DeviceID: dev.ID,
	}, nil
}

// List возвращает устройства, опционально по владельцу
func (s *Service) List(ctx context.Context, ownerUserID string) (*ListResponse, error) {
	devices, err := s.repo.List(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	return &ListResponse{
		Status: "Ok",
		Data:   devices,
	}, nil
}

// Remove удаляет устройство из реестра
func (s *Service) Remove(ctx context.Context, deviceID string) (*RemoveResponse, error) {
	if err := s.repo.Delete(ctx, deviceID); err != nil {
		return nil, fmt.Errorf("failed to delete device: %w", err)
	}

	return &RemoveResponse{
		Status:  "Ok",
		Message: "Device removed successfully",
	}, nil
}

// Status считает накопившиеся изменения по всем разрешенным таблицам
// с последней синхронизации (или с регистрации, если синхронизаций
// еще не было)
func (s *Service) Status(ctx context.Context, deviceID string) (*StatusResponse, error) {
	dev, err := s.repo.Get(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	// Устройство без единой синхронизации еще не видело ничего,
	// поэтому отсчет идет с начала времен, а не с регистрации
	var since int64
	if dev.LastSyncAt != nil {
		since = dev.LastSyncAt.UnixMilli()
	}

	pending := 0
	for _, table := range sync.Tables {
		count, err := s.counter.CountChangedSince(ctx, table, since)
		if err != nil {
			return nil, fmt.Errorf("failed to count changes for %s: %w", table, err)
		}
		pending += count
	}

	state := StatusSynced
	if pending > 0 {
		state = StatusOutOfSync
	}

	return &StatusResponse{
		Status:         "Ok",
		Device:         dev,
		PendingChanges: pending,
		SyncState:      state,
	}, nil
}

// StrategyFor возвращает стратегию устройства по умолчанию
func (s *Service) StrategyFor(ctx context.Context, deviceID string) (sync.Strategy, error) {
	dev, err := s.repo.Get(ctx, deviceID)
	if err != nil {
		return "", err
	}
	return sync.ParseStrategy(dev.Strategy)
}

// TouchLastSync фиксирует успешную синхронизацию устройства
func (s *Service) TouchLastSync(ctx context.Context, deviceID string) error {
	return s.repo.UpdateLastSync(ctx, deviceID, time.Now())
}

// SetStrategy меняет стратегию устройства по умолчанию
func (s *Service) SetStrategy(ctx context.Context, deviceID string, strategy sync.Strategy) error {
	return s.repo.UpdateStrategy(ctx, deviceID, string(strategy))
}
