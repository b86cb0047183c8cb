package device

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) registerOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-register",
		Method:      http.MethodPost,
		Path:        "/api/devices",
		Summary:     "Зарегистрировать устройство",
		Description: "Регистрирует новое устройство и возвращает его идентификатор",
		Tags:        []string{"devices"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-list",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "Получить список устройств",
		Description: "Возвращает зарегистрированные устройства, опционально по владельцу",
		Tags:        []string{"devices"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) removeOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-remove",
		Method:      http.MethodDelete,
		Path:        "/api/devices/{id}",
		Summary:     "Удалить устройство",
		Description: "Удаляет устройство из реестра синхронизации",
		Tags:        []string{"devices"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-status",
		Method:      http.MethodGet,
		Path:        "/api/devices/{id}/status",
		Summary:     "Получить состояние устройства",
		Description: "Возвращает устройство и число изменений, накопившихся с его последней синхронизации",
		Tags:        []string{"devices"},
		Middlewares: h.middleware,
	}
}
