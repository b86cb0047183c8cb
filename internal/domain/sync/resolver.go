package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// Strategy стратегия разрешения конфликтов
type Strategy string

const (
	StrategyLatestWins Strategy = "latest_wins"
	StrategyServerWins Strategy = "server_wins"
	StrategyClientWins Strategy = "client_wins"
	StrategyManual     Strategy = "manual"
)

// DefaultStrategy стратегия по умолчанию для новых устройств
const DefaultStrategy = StrategyLatestWins

// ParseStrategy проверяет имя стратегии
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyLatestWins, StrategyServerWins, StrategyClientWins, StrategyManual:
		return Strategy(name), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidStrategy, name)
	}
}

// Resolution итог разрешения одного конфликта
type Resolution struct {
	Applied bool
	Winner  string // existing | incoming | pending
}

// Resolver применяет стратегию к обнаруженному конфликту
type Resolver struct {
	repo Repository
	log  *slog.Logger
}

// NewResolver создает новый резолвер конфликтов
func NewResolver(repo Repository, log *slog.Logger) *Resolver {
	return &Resolver{
		repo: repo,
		log:  log,
	}
}

// Resolve применяет стратегию; запись победителя персистится здесь же,
// кроме manual — тогда создается отложенный конфликт и ничего не пишется
func (r *Resolver) Resolve(ctx context.Context, table Table, existing, incoming Record, strategy Strategy) (Resolution, error) {
	switch strategy {
	case StrategyLatestWins:
		existingTS, _ := existing.UpdatedAt()
		incomingTS, _ := incoming.UpdatedAt()
		if incomingTS > existingTS {
			if err := r.repo.UpsertRecord(ctx, table, incoming); err != nil {
				return Resolution{}, fmt.Errorf("failed to apply incoming record: %w", err)
			}
			return Resolution{Applied: true, Winner: WinnerIncoming}, nil
		}
		return Resolution{Applied: false, Winner: WinnerExisting}, nil

	case StrategyServerWins:
		return Resolution{Applied: false, Winner: WinnerExisting}, nil

	case StrategyClientWins:
		if err := r.repo.UpsertRecord(ctx, table, incoming); err != nil {
			return Resolution{}, fmt.Errorf("failed to apply incoming record: %w", err)
		}
		return Resolution{Applied: true, Winner: WinnerIncoming}, nil

	case StrategyManual:
		recordID, _ := incoming.ID()
		conflict := &Conflict{
			Table:        string(table),
			RecordID:     recordID,
			ExistingData: existing,
			IncomingData: incoming,
			Status:       ConflictPending,
			CreatedAt:    time.Now(),
		}
		if err := r.repo.SaveConflict(ctx, conflict); err != nil {
			return Resolution{}, fmt.Errorf("failed to save conflict: %w", err)
		}
		r.log.Info("Conflict deferred for manual resolution",
			slog.String("table", string(table)),
			slog.String("record_id", recordID),
		)
		return Resolution{Applied: false, Winner: WinnerPending}, nil

	default:
		return Resolution{}, fmt.Errorf("%w: %s", ErrInvalidStrategy, strategy)
	}
}
