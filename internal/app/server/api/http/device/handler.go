package device

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"bizsync/internal/domain/device"
)

type Handler struct {
	service    device.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service device.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.removeOp(), h.remove)
	huma.Register(api, h.statusOp(), h.status)
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	response, err := h.service.Register(ctx, input.Body)
	if err != nil {
		return &registerOutput{
			Body: device.RegisterResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &registerOutput{
		Body: *response,
	}, nil
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	response, err := h.service.List(ctx, input.OwnerUserID)
	if err != nil {
		return &listOutput{
			Body: device.ListResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &listOutput{
		Body: *response,
	}, nil
}

func (h *Handler) remove(ctx context.Context, input *removeInput) (*removeOutput, error) {
	response, err := h.service.Remove(ctx, input.ID)
	if err != nil {
		return &removeOutput{
			Body: device.RemoveResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &removeOutput{
		Body: *response,
	}, nil
}

func (h *Handler) status(ctx context.Context, input *statusInput) (*statusOutput, error) {
	response, err := h.service.Status(ctx, input.ID)
	if err != nil {
		return &statusOutput{
			Body: device.StatusResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &statusOutput{
		Body: *response,
	}, nil
}
