package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// Servicer интерфейс оркестратора синхронизации
type Servicer interface {
	// Pull возвращает изменения после водяного знака
	Pull(ctx context.Context, req PullRequest) (*PullResponse, error)

	// Push применяет пакет изменений от устройства
	Push(ctx context.Context, req PushRequest) (*PushResponse, error)

	// FullSync выполняет push, затем pull, затем отмечает устройство
	FullSync(ctx context.Context, req FullSyncRequest) (*FullSyncResponse, error)

	// Conflicts возвращает неразрешенные конфликты
	Conflicts(ctx context.Context) (*GetConflictsResponse, error)

	// ResolveConflict вручную разрешает отложенный конфликт
	ResolveConflict(ctx context.Context, conflictID int64, req ResolveConflictRequest) (*ResolveConflictResponse, error)

	// History возвращает журнал синхронизаций
	History(ctx context.Context, deviceID string, limit int) (*GetHistoryResponse, error)

	// SetStrategy меняет стратегию устройства по умолчанию
	SetStrategy(ctx context.Context, req SetStrategyRequest) (*SetStrategyResponse, error)
}

// ServiceConfig конфигурация оркестратора
type ServiceConfig struct {
	HistoryLimit    int `json:"history_limit"`
	MaxHistoryLimit int `json:"max_history_limit"`
}

// Service реализация оркестратора синхронизации
type Service struct {
	repo     Repository
	devices  DeviceProvider
	resolver *Resolver
	log      *slog.Logger
	config   *ServiceConfig
}

// NewService создает новый оркестратор синхронизации
func NewService(repo Repository, devices DeviceProvider, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{
			HistoryLimit:    50,
			MaxHistoryLimit: 500,
		}
	}

	return &Service{
		repo:     repo,
		devices:  devices,
		resolver: NewResolver(repo, log),
		log:      log,
		config:   config,
	}
}

// Pull возвращает изменения после водяного знака по всем запрошенным
// таблицам; возвращаемый timestamp — время выполнения pull, его
// устройство предъявляет как следующий водяной знак
func (s *Service) Pull(ctx context.Context, req PullRequest) (*PullResponse, error) {
	tables, err := s.resolveTables(req.Tables)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	changes := make(ChangeSet)
	count := 0

	for _, table := range tables {
		records, err := s.repo.ChangedSince(ctx, table, req.LastSyncTimestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to get changes for %s: %w", table, err)
		}
		if len(records) > 0 {
			changes[string(table)] = records
			count += len(records)
		}
	}

	s.log.Debug("Pull completed",
		slog.String("device_id", req.DeviceID),
		slog.Int64("since", req.LastSyncTimestamp),
		slog.Int("records", count),
	)

	return &PullResponse{
		Status:      "Ok",
		Timestamp:   now,
		Changes:     changes,
		RecordCount: count,
	}, nil
}

// Push применяет пакет изменений. Таблицы проверяются по вайтлисту до
// обработки первой записи — нарушение отменяет весь push. Ошибка на
// отдельной записи пакет не прерывает: она попадает в счетчик errors
// и в детали ответа.
func (s *Service) Push(ctx context.Context, req PushRequest) (*PushResponse, error) {
	if req.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	strategy, err := s.pushStrategy(ctx, req.DeviceID, req.Strategy)
	if err != nil {
		return nil, err
	}

	// Вайтлист проверяется целиком заранее: чужая таблица — признак
	// некорректного запроса, а не проблемы в данных
	for name := range req.Changes {
		if _, err := ParseTable(name); err != nil {
			return nil, err
		}
	}

	entry := &SyncLogEntry{
		DeviceID: req.DeviceID,
		Details:  []LogDetail{},
		SyncedAt: time.Now(),
	}

processing:
	for _, table := range Tables {
		records, ok := req.Changes[string(table)]
		if !ok {
			continue
		}
		for _, rec := range records {
			// Отмена останавливает обработку, но не откатывает
			// уже примененные записи
			if ctx.Err() != nil {
				s.log.Warn("Push cancelled mid-batch",
					slog.String("device_id", req.DeviceID),
					slog.Int("applied", entry.Applied),
				)
				break processing
			}
			s.pushRecord(ctx, table, rec, strategy, entry)
		}
	}

	if err := s.repo.AppendSyncLog(ctx, entry); err != nil {
		s.log.Warn("Failed to append sync log", "error", err)
	}

	return &PushResponse{
		Status:    "Ok",
		Applied:   entry.Applied,
		Conflicts: entry.Conflicts,
		Errors:    entry.Errors,
		Details:   entry.Details,
	}, nil
}

// pushRecord обрабатывает одну запись пакета, пополняя итоговый журнал
func (s *Service) pushRecord(ctx context.Context, table Table, rec Record, strategy Strategy, entry *SyncLogEntry) {
	recordID, ok := rec.ID()
	if !ok {
		entry.Errors++
		entry.Details = append(entry.Details, LogDetail{
			Table:  string(table),
			Action: ActionError,
			Error:  ErrRecordWithoutID.Error(),
		})
		return
	}

	existing, err := s.repo.GetRecord(ctx, table, recordID)
	if err != nil {
		entry.Errors++
		entry.Details = append(entry.Details, LogDetail{
			Table:    string(table),
			RecordID: recordID,
			Action:   ActionError,
			Error:    err.Error(),
		})
		return
	}

	if existing == nil {
		if err := s.repo.UpsertRecord(ctx, table, rec); err != nil {
			entry.Errors++
			entry.Details = append(entry.Details, LogDetail{
				Table:    string(table),
				RecordID: recordID,
				Action:   ActionError,
				Error:    err.Error(),
			})
			return
		}
		entry.Applied++
		entry.Details = append(entry.Details, LogDetail{
			Table:    string(table),
			RecordID: recordID,
			Action:   ActionInserted,
		})
		return
	}

	conflict, soft := DetectConflict(existing, rec)
	if !conflict {
		if soft {
			// Метки разошлись при одинаковом содержимом: гонки нет,
			// но след оставляем
			s.log.Debug("Soft conflict: identical content, different timestamps",
				slog.String("table", string(table)),
				slog.String("record_id", recordID),
			)
		}
		if err := s.repo.UpsertRecord(ctx, table, rec); err != nil {
			entry.Errors++
			entry.Details = append(entry.Details, LogDetail{
				Table:    string(table),
				RecordID: recordID,
				Action:   ActionError,
				Error:    err.Error(),
			})
			return
		}
		entry.Applied++
		entry.Details = append(entry.Details, LogDetail{
			Table:    string(table),
			RecordID: recordID,
			Action:   ActionUpdated,
		})
		return
	}

	resolution, err := s.resolver.Resolve(ctx, table, existing, rec, strategy)
	if err != nil {
		entry.Errors++
		entry.Details = append(entry.Details, LogDetail{
			Table:    string(table),
			RecordID: recordID,
			Action:   ActionError,
			Error:    err.Error(),
		})
		return
	}

	entry.Conflicts++
	if resolution.Applied {
		entry.Applied++
	}

	action := ActionConflictResolved
	if resolution.Winner == WinnerPending {
		action = ActionConflictPending
	}
	entry.Details = append(entry.Details, LogDetail{
		Table:    string(table),
		RecordID: recordID,
		Action:   action,
		Strategy: string(strategy),
	})
}

// FullSync выполняет push (если есть изменения), затем pull, затем
// отмечает устройство. Порядок push-до-pull намеренный: собственные
// правки устройства не должны вернуться к нему как "новые" в том же
// обмене, когда обе стороны сходятся к одному состоянию.
func (s *Service) FullSync(ctx context.Context, req FullSyncRequest) (*FullSyncResponse, error) {
	if req.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	// Заодно проверяет, что устройство зарегистрировано
	if _, err := s.devices.StrategyFor(ctx, req.DeviceID); err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}

	var pushResp *PushResponse
	if len(req.Changes) > 0 {
		var err error
		pushResp, err = s.Push(ctx, PushRequest{
			DeviceID: req.DeviceID,
			Changes:  req.Changes,
			Strategy: req.Strategy,
		})
		if err != nil {
			return nil, err
		}
	}

	pullResp, err := s.Pull(ctx, PullRequest{
		DeviceID:          req.DeviceID,
		LastSyncTimestamp: req.LastSyncTimestamp,
		Tables:            req.Tables,
	})
	if err != nil {
		return nil, err
	}

	if err := s.devices.TouchLastSync(ctx, req.DeviceID); err != nil {
		s.log.Warn("Failed to update device sync time",
			slog.String("device_id", req.DeviceID),
			"error", err,
		)
	}

	return &FullSyncResponse{
		Status:   "Ok",
		Push:     pushResp,
		Pull:     pullResp,
		SyncedAt: time.Now().UnixMilli(),
	}, nil
}

// Conflicts возвращает неразрешенные конфликты, новые первыми
func (s *Service) Conflicts(ctx context.Context) (*GetConflictsResponse, error) {
	conflicts, err := s.repo.PendingConflicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get conflicts: %w", err)
	}

	return &GetConflictsResponse{
		Status: "Ok",
		Data:   conflicts,
	}, nil
}

// ResolveConflict применяет выбранную версию к записи и закрывает
// конфликт; повторное разрешение — ошибка, а не тихий успех
func (s *Service) ResolveConflict(ctx context.Context, conflictID int64, req ResolveConflictRequest) (*ResolveConflictResponse, error) {
	if req.ChosenVersion != WinnerExisting && req.ChosenVersion != WinnerIncoming {
		return nil, fmt.Errorf("chosen_version must be %q or %q", WinnerExisting, WinnerIncoming)
	}

	conflict, err := s.repo.GetConflict(ctx, conflictID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conflict: %w", err)
	}
	if conflict.Status == ConflictResolved {
		return nil, ErrConflictResolved
	}

	winning := conflict.ExistingData
	if req.ChosenVersion == WinnerIncoming {
		winning = conflict.IncomingData
	}

	if err := s.repo.ResolveConflict(ctx, conflict, req.ChosenVersion, winning); err != nil {
		return nil, fmt.Errorf("failed to resolve conflict: %w", err)
	}

	s.log.Info("Conflict resolved manually",
		slog.Int64("conflict_id", conflictID),
		slog.String("chosen_version", req.ChosenVersion),
	)

	return &ResolveConflictResponse{
		Status:        "Ok",
		ChosenVersion: req.ChosenVersion,
	}, nil
}

// History возвращает журнал синхронизаций, опционально по устройству
func (s *Service) History(ctx context.Context, deviceID string, limit int) (*GetHistoryResponse, error) {
	if limit <= 0 {
		limit = s.config.HistoryLimit
	}
	if limit > s.config.MaxHistoryLimit {
		limit = s.config.MaxHistoryLimit
	}

	entries, err := s.repo.ListSyncLog(ctx, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync history: %w", err)
	}

	return &GetHistoryResponse{
		Status: "Ok",
		Data:   entries,
	}, nil
}

// SetStrategy меняет стратегию устройства по умолчанию
func (s *Service) SetStrategy(ctx context.Context, req SetStrategyRequest) (*SetStrategyResponse, error) {
	if req.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	strategy, err := ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}

	if err := s.devices.SetStrategy(ctx, req.DeviceID, strategy); err != nil {
		return nil, fmt.Errorf("failed to set strategy: %w", err)
	}

	return &SetStrategyResponse{
		Status:   "Ok",
		Strategy: string(strategy),
	}, nil
}

// pushStrategy выбирает стратегию push: переопределение из запроса или
// стратегия устройства по умолчанию; проверяется до обработки записей
func (s *Service) pushStrategy(ctx context.Context, deviceID, override string) (Strategy, error) {
	if override != "" {
		return ParseStrategy(override)
	}
	strategy, err := s.devices.StrategyFor(ctx, deviceID)
	if err != nil {
		return "", fmt.Errorf("failed to look up device: %w", err)
	}
	return strategy, nil
}

// resolveTables проверяет запрошенные таблицы по вайтлисту;
// пустой список означает все разрешенные таблицы
func (s *Service) resolveTables(names []string) ([]Table, error) {
	if len(names) == 0 {
		return Tables, nil
	}
	tables := make([]Table, 0, len(names))
	for _, name := range names {
		table, err := ParseTable(name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}
