package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) pullOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-pull",
		Method:      http.MethodPost,
		Path:        "/api/sync/pull",
		Summary:     "Получить изменения с сервера",
		Description: "Возвращает записи, измененные после указанного водяного знака",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pushOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-push",
		Method:      http.MethodPost,
		Path:        "/api/sync/push",
		Summary:     "Отправить изменения на сервер",
		Description: "Принимает пакет локальных изменений устройства и применяет его с разрешением конфликтов",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) fullSyncOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-full",
		Method:      http.MethodPost,
		Path:        "/api/sync/full",
		Summary:     "Полный цикл синхронизации",
		Description: "Выполняет push локальных изменений, затем pull серверных, затем отмечает устройство",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getConflictsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-conflicts",
		Method:      http.MethodGet,
		Path:        "/api/sync/conflicts",
		Summary:     "Получить конфликты синхронизации",
		Description: "Возвращает список неразрешенных конфликтов",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resolveConflictOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-resolve-conflict",
		Method:      http.MethodPost,
		Path:        "/api/sync/conflicts/{id}/resolve",
		Summary:     "Разрешить конфликт синхронизации",
		Description: "Применяет выбранную версию записи и закрывает конфликт",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getHistoryOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-history",
		Method:      http.MethodGet,
		Path:        "/api/sync/history",
		Summary:     "Получить журнал синхронизаций",
		Description: "Возвращает итоги прошедших синхронизаций, опционально по устройству",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) setStrategyOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-set-strategy",
		Method:      http.MethodPost,
		Path:        "/api/sync/strategy",
		Summary:     "Сменить стратегию разрешения конфликтов",
		Description: "Устанавливает стратегию устройства по умолчанию",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
