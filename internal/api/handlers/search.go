// search.go — обработчик полнотекстового поиска по каталогу.
// POST /api/v1/search — тело SearchRequest, ответ с документами,
// фасетами и geohash-сеткой.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/arkstore/catalog-module/internal/api/errors"
	"github.com/arkstore/catalog-module/internal/search"
	"github.com/arkstore/catalog-module/internal/searchclient"
	"github.com/arkstore/catalog-module/internal/transform"
)

// Search выполняет поиск по каталогу.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.InvalidRequest(w, "Некорректное JSON-тело запроса: "+err.Error())
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	rc := &transform.RequestContext{Request: r}
	result, err := h.search.Search(r.Context(), &req, rc)
	if err != nil {
		// Синтаксис advanced-запроса проверяет только движок:
		// его отказ — ошибка входных данных, а не сервера.
		if errors.Is(err, searchclient.ErrBadQuery) {
			apierrors.ValidationError(w, "Поисковый запрос отклонён движком")
			return
		}
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
