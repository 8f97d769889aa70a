// files.go — обработчик листинга файлов каталога.
// GET /api/v1/files — постраничный список метаданных файлов.
package handlers

import (
	"net/http"

	apierrors "github.com/arkstore/catalog-module/internal/api/errors"
	"github.com/arkstore/catalog-module/internal/repository"
	"github.com/arkstore/catalog-module/internal/transform"
)

// fileListResponse — ответ листинга файлов.
type fileListResponse struct {
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
	Files  []transform.Document `json:"files"`
}

// ListFiles возвращает страницу метаданных файлов.
// Фильтр: memberOf (URI сущности-владельца).
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	q := r.URL.Query()
	params := repository.FileListParams{
		SortBy:    q.Get("sort"),
		SortOrder: q.Get("order"),
		Limit:     limit,
		Offset:    offset,
	}

	if memberOf := q.Get("memberOf"); memberOf != "" {
		params.MemberOf = &memberOf
	}

	rc := &transform.RequestContext{Request: r}
	result, err := h.files.List(r.Context(), params, rc)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fileListResponse{
		Total:  result.Total,
		Limit:  result.Limit,
		Offset: result.Offset,
		Files:  result.Files,
	})
}
