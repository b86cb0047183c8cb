package client

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	syncdomain "bizsync/internal/domain/sync"
)

// SyncService управляет синхронизацией локального кэша с сервером
type SyncService struct {
	app       *App
	log       *slog.Logger
	mu        sync.RWMutex
	lastSync  time.Time
	isSyncing bool
	stats     *SyncStats
}

// SyncStats статистика синхронизации
type SyncStats struct {
	TotalSyncs     int       `json:"total_syncs"`
	LastSuccessful time.Time `json:"last_successful"`
	LastFailed     time.Time `json:"last_failed"`
	TotalPushed    int       `json:"total_pushed"`
	TotalPulled    int       `json:"total_pulled"`
	TotalConflicts int       `json:"total_conflicts"`
	TotalErrors    int       `json:"total_errors"`
}

// SyncResult результат одного цикла синхронизации
type SyncResult struct {
	Pushed    int                    `json:"pushed"`
	Pulled    int                    `json:"pulled"`
	Conflicts int                    `json:"conflicts"`
	Errors    int                    `json:"errors"`
	Details   []syncdomain.LogDetail `json:"details,omitempty"`
	Duration  time.Duration          `json:"duration"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
}

// NewSyncService создает новый сервис синхронизации
func NewSyncService(app *App) *SyncService {
	return &SyncService{
		app:   app,
		log:   app.log,
		stats: &SyncStats{},
	}
}

// Sync выполняет полный цикл: отправляет неотправленные правки,
// забирает серверные изменения после водяного знака, применяет их
// к кэшу и передвигает водяной знак
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return nil, fmt.Errorf("синхронизация уже выполняется")
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	if !s.app.IsRegistered() {
		return nil, fmt.Errorf("устройство не зарегистрировано. Выполните: bizsync devices register")
	}

	result := &SyncResult{StartTime: time.Now()}

	changes, err := s.app.storage.UnsyncedChanges()
	if err != nil {
		s.markFailed()
		return nil, fmt.Errorf("ошибка сбора локальных изменений: %w", err)
	}

	watermark, err := s.app.storage.Watermark()
	if err != nil {
		s.markFailed()
		return nil, fmt.Errorf("ошибка чтения водяного знака: %w", err)
	}

	s.log.Info("Начало синхронизации",
		"device_id", s.app.DeviceID(),
		"local_changes", changeCount(changes),
		"watermark", watermark,
	)

	resp, err := s.app.httpClient.FullSync(ctx, syncdomain.FullSyncRequest{
		DeviceID:          s.app.DeviceID(),
		LastSyncTimestamp: watermark,
		Changes:           changes,
	})
	if err != nil {
		s.markFailed()
		return nil, fmt.Errorf("ошибка синхронизации: %w", err)
	}

	if resp.Push != nil {
		result.Pushed = resp.Push.Applied
		result.Conflicts = resp.Push.Conflicts
		result.Errors = resp.Push.Errors
		result.Details = resp.Push.Details
		s.markDelivered(resp.Push.Details)
	}

	if resp.Pull != nil {
		pulled, err := s.applyServerChanges(resp.Pull.Changes)
		if err != nil {
			s.markFailed()
			return nil, err
		}
		result.Pulled = pulled

		if err := s.app.storage.SetWatermark(resp.Pull.Timestamp); err != nil {
			s.log.Warn("Не удалось сохранить водяной знак", "error", err)
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	s.updateStats(result)

	s.log.Info("Синхронизация завершена",
		"pushed", result.Pushed,
		"pulled", result.Pulled,
		"conflicts", result.Conflicts,
		"errors", result.Errors,
		"duration", result.Duration,
	)

	return result, nil
}

// markDelivered помечает записи, которые сервер принял или учел как
// конфликт; записи с ошибками остаются в очереди на повторный push
func (s *SyncService) markDelivered(details []syncdomain.LogDetail) {
	for _, detail := range details {
		if detail.Action == syncdomain.ActionError {
			continue
		}
		table, err := syncdomain.ParseTable(detail.Table)
		if err != nil {
			continue
		}
		if err := s.app.storage.MarkSynced(table, detail.RecordID); err != nil {
			s.log.Warn("Не удалось обновить статус записи",
				"table", detail.Table,
				"record_id", detail.RecordID,
				"error", err,
			)
		}
	}
}

// applyServerChanges применяет серверные изменения к локальному кэшу
func (s *SyncService) applyServerChanges(changes syncdomain.ChangeSet) (int, error) {
	applied := 0
	for name, records := range changes {
		table, err := syncdomain.ParseTable(name)
		if err != nil {
			return applied, fmt.Errorf("сервер вернул неизвестную таблицу %q: %w", name, err)
		}
		for _, rec := range records {
			if err := s.app.storage.ApplyServer(table, rec); err != nil {
				return applied, fmt.Errorf("ошибка применения записи: %w", err)
			}
			applied++
		}
	}

	return applied, nil
}

// StartAutoSync запускает периодическую синхронизацию
func (s *SyncService) StartAutoSync(ctx context.Context, interval time.Duration) {
	s.log.Info("Запуск автоматической синхронизации", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Автоматическая синхронизация остановлена")
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil {
				s.log.Error("Ошибка автоматической синхронизации", "error", err)
			}
		}
	}
}

// GetStats возвращает копию статистики синхронизации
func (s *SyncService) GetStats() *SyncStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statsCopy := *s.stats
	return &statsCopy
}

// GetLastSyncTime возвращает время последней синхронизации
func (s *SyncService) GetLastSyncTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// IsSyncing проверяет, выполняется ли синхронизация
func (s *SyncService) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

func (s *SyncService) updateStats(result *SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalSyncs++
	s.stats.LastSuccessful = result.EndTime
	s.stats.TotalPushed += result.Pushed
	s.stats.TotalPulled += result.Pulled
	s.stats.TotalConflicts += result.Conflicts
	s.stats.TotalErrors += result.Errors
	s.lastSync = result.EndTime
}

func (s *SyncService) markFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.LastFailed = time.Now()
}

func changeCount(changes syncdomain.ChangeSet) int {
	count := 0
	for _, records := range changes {
		count += len(records)
	}
	return count
}

func defaultDeviceName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
