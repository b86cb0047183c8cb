package sync

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"bizsync/internal/domain/sync"
)

type Handler struct {
	service    sync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.pullOp(), h.pull)
	huma.Register(api, h.pushOp(), h.push)
	huma.Register(api, h.fullSyncOp(), h.fullSync)
	huma.Register(api, h.getConflictsOp(), h.getConflicts)
	huma.Register(api, h.resolveConflictOp(), h.resolveConflict)
	huma.Register(api, h.getHistoryOp(), h.getHistory)
	huma.Register(api, h.setStrategyOp(), h.setStrategy)
}

func (h *Handler) pull(ctx context.Context, input *pullInput) (*pullOutput, error) {
	response, err := h.service.Pull(ctx, input.Body)
	if err != nil {
		return &pullOutput{
			Body: sync.PullResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &pullOutput{
		Body: *response,
	}, nil
}

func (h *Handler) push(ctx context.Context, input *pushInput) (*pushOutput, error) {
	response, err := h.service.Push(ctx, input.Body)
	if err != nil {
		return &pushOutput{
			Body: sync.PushResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &pushOutput{
		Body: *response,
	}, nil
}

func (h *Handler) fullSync(ctx context.Context, input *fullSyncInput) (*fullSyncOutput, error) {
	response, err := h.service.FullSync(ctx, input.Body)
	if err != nil {
		return &fullSyncOutput{
			Body: sync.FullSyncResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &fullSyncOutput{
		Body: *response,
	}, nil
}

func (h *Handler) getConflicts(ctx context.Context, _ *getConflictsInput) (*getConflictsOutput, error) {
	response, err := h.service.Conflicts(ctx)
	if err != nil {
		return &getConflictsOutput{
			Body: sync.GetConflictsResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &getConflictsOutput{
		Body: *response,
	}, nil
}

func (h *Handler) resolveConflict(ctx context.Context, input *resolveConflictInput) (*resolveConflictOutput, error) {
	response, err := h.service.ResolveConflict(ctx, input.ID, input.Body)
	if err != nil {
		return &resolveConflictOutput{
			Body: sync.ResolveConflictResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &resolveConflictOutput{
		Body: *response,
	}, nil
}

func (h *Handler) getHistory(ctx context.Context, input *getHistoryInput) (*getHistoryOutput, error) {
	response, err := h.service.History(ctx, input.DeviceID, input.Limit)
	if err != nil {
		return &getHistoryOutput{
			Body: sync.GetHistoryResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &getHistoryOutput{
		Body: *response,
	}, nil
}

func (h *Handler) setStrategy(ctx context.Context, input *setStrategyInput) (*setStrategyOutput, error) {
	response, err := h.service.SetStrategy(ctx, input.Body)
	if err != nil {
		return &setStrategyOutput{
			Body: sync.SetStrategyResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &setStrategyOutput{
		Body: *response,
	}, nil
}
