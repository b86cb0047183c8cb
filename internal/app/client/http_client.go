package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"bizsync/internal/app/client/config"
	"bizsync/internal/domain/device"
	syncdomain "bizsync/internal/domain/sync"
)

type httpClient struct {
	client    *http.Client
	config    *config.Config
	log       *slog.Logger
	baseURL   string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) (*httpClient, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  false,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: 10,
		},
	}

	// Определяем протокол
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}
	baseURL := scheme + cfg.ServerAddress

	return &httpClient{
		client:    client,
		config:    cfg,
		log:       log,
		baseURL:   baseURL,
		userAgent: "Bizsync-Client/1.0",
	}, nil
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}

	return nil
}

// RegisterDevice регистрирует устройство на сервере
func (h *httpClient) RegisterDevice(ctx context.Context, req device.RegisterRequest) (string, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/devices", req)
	if err != nil {
		return "", err
	}

	var result device.RegisterResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return "", err
	}
	if result.Status == "Error" {
		return "", fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return result.DeviceID, nil
}

// GetDevices получает список устройств с сервера
func (h *httpClient) GetDevices(ctx context.Context) ([]device.Device, error) {
	resp, err := h.doRequest(ctx, "GET", "/api/devices", nil)
	if err != nil {
		return nil, err
	}

	var result device.ListResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Status == "Error" {
		return nil, fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return result.Data, nil
}

// RemoveDevice удаляет устройство на сервере
func (h *httpClient) RemoveDevice(ctx context.Context, deviceID string) error {
	resp, err := h.doRequest(ctx, "DELETE", "/api/devices/"+deviceID, nil)
	if err != nil {
		return err
	}

	var result device.RemoveResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return err
	}
	if result.Status == "Error" {
		return fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return nil
}

// DeviceStatus получает состояние устройства
func (h *httpClient) DeviceStatus(ctx context.Context, deviceID string) (*device.StatusResponse, error) {
	resp, err := h.doRequest(ctx, "GET", "/api/devices/"+deviceID+"/status", nil)
	if err != nil {
		return nil, err
	}

	var result device.StatusResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Status == "Error" {
		return nil, fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return &result, nil
}

// FullSync выполняет полный цикл синхронизации на сервере
func (h *httpClient) FullSync(ctx context.Context, req syncdomain.FullSyncRequest) (*syncdomain.FullSyncResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/sync/full", req)
	if err != nil {
		return nil, err
	}

	var result syncdomain.FullSyncResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Status == "Error" {
		return nil, fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return &result, nil
}

// Pull получает изменения с сервера
func (h *httpClient) Pull(ctx context.Context, req syncdomain.PullRequest) (*syncdomain.PullResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/sync/pull", req)
	if err != nil {
		return nil, err
	}

	var result syncdomain.PullResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Status == "Error" {
		return nil, fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return &result, nil
}

// Push отправляет пакет локальных изменений на сервер
func (h *httpClient) Push(ctx context.Context, req syncdomain.PushRequest) (*syncdomain.PushResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/sync/push", req)
	if err != nil {
		return nil, err
	}

	var result syncdomain.PushResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Status == "Error" {
		return nil, fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return &result, nil
}

// GetConflicts получает неразрешенные конфликты с сервера
func (h *httpClient) GetConflicts(ctx context.Context) ([]syncdomain.Conflict, error) {
	resp, err := h.doRequest(ctx, "GET", "/api/sync/conflicts", nil)
	if err != nil {
		return nil, err
	}

	var result syncdomain.GetConflictsResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Status == "Error" {
		return nil, fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return result.Data, nil
}

// ResolveConflict разрешает конфликт на сервере
func (h *httpClient) ResolveConflict(ctx context.Context, conflictID int64, chosenVersion string) error {
	req := syncdomain.ResolveConflictRequest{
		ChosenVersion: chosenVersion,
	}

	path := fmt.Sprintf("/api/sync/conflicts/%d/resolve", conflictID)
	resp, err := h.doRequest(ctx, "POST", path, req)
	if err != nil {
		return err
	}

	var result syncdomain.ResolveConflictResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return err
	}
	if result.Status == "Error" {
		return fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return nil
}

// GetHistory получает журнал синхронизаций
func (h *httpClient) GetHistory(ctx context.Context, deviceID string, limit int) ([]syncdomain.SyncLogEntry, error) {
	path := fmt.Sprintf("/api/sync/history?device_id=%s&limit=%d", deviceID, limit)
	resp, err := h.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result syncdomain.GetHistoryResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Status == "Error" {
		return nil, fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return result.Data, nil
}

// SetStrategy меняет стратегию устройства на сервере
func (h *httpClient) SetStrategy(ctx context.Context, deviceID, strategy string) error {
	req := syncdomain.SetStrategyRequest{
		DeviceID: deviceID,
		Strategy: strategy,
	}

	resp, err := h.doRequest(ctx, "POST", "/api/sync/strategy", req)
	if err != nil {
		return err
	}

	var result syncdomain.SetStrategyResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return err
	}
	if result.Status == "Error" {
		return fmt.Errorf("ошибка сервера: %s", result.Error)
	}

	return nil
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	// Добавляем заголовки
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"body", string(body),
	)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("ошибка сервера: %s", errResp.Error)
		}
		return fmt.Errorf("ошибка сервера: статус %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}
