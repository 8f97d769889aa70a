// handler.go — основной обработчик API Catalog Module.
// Объединяет health и бизнес-обработчики, делегируя запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arkstore/catalog-module/internal/api/errors"
	"github.com/arkstore/catalog-module/internal/delivery"
	"github.com/arkstore/catalog-module/internal/service"
)

// Границы пагинации листингов.
const (
	minLimit = 1
	maxLimit = 1000

	defaultLimit = 100
)

// APIHandler — основной обработчик API Catalog Module.
type APIHandler struct {
	entities   *service.EntityService
	files      *service.FileService
	search     *service.SearchService
	content    *service.ContentService
	negotiator *delivery.Negotiator
	health     *HealthHandler
	devErrors  bool
	logger     *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// devErrors — отдавать ли тексты внутренних ошибок клиенту (только dev).
func NewAPIHandler(
	entities *service.EntityService,
	files *service.FileService,
	search *service.SearchService,
	content *service.ContentService,
	negotiator *delivery.Negotiator,
	health *HealthHandler,
	devErrors bool,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		entities:   entities,
		files:      files,
		search:     search,
		content:    content,
		negotiator: negotiator,
		health:     health,
		devErrors:  devErrors,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// pathID извлекает и декодирует идентификатор из пути.
// Идентификаторы каталога — URI, в пути они percent-encoded.
func pathID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return "", errors.New("пустой идентификатор")
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("некорректный идентификатор: %w", err)
	}
	return id, nil
}

// parsePagination разбирает limit/offset из query string.
// Значения вне диапазона отклоняются до обращения к хранилищу.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultLimit
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("limit должен быть целым числом: %q", v)
		}
	}
	if limit < minLimit || limit > maxLimit {
		return 0, 0, fmt.Errorf("limit должен быть в диапазоне %d..%d", minLimit, maxLimit)
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("offset должен быть целым числом: %q", v)
		}
	}
	if offset < 0 {
		return 0, 0, errors.New("offset не может быть отрицательным")
	}

	return limit, offset, nil
}

// handleServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Тексты внутренних ошибок не утекают клиенту (кроме режима devErrors).
func (h *APIHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Запись не найдена")
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, "Доступ к контенту запрещён")
	case errors.Is(err, delivery.ErrUnavailable):
		apierrors.NotFound(w, "Контент недоступен")
	default:
		h.logger.Error("Внутренняя ошибка обработки запроса",
			slog.String("error", err.Error()),
		)
		msg := "Внутренняя ошибка сервера"
		if h.devErrors {
			msg = err.Error()
		}
		apierrors.InternalError(w, msg)
	}
}
