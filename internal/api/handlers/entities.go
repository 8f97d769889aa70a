// entities.go — обработчик листинга сущностей каталога.
// GET /api/v1/entities — постраничный список с фильтрами.
package handlers

import (
	"net/http"
	"strings"

	apierrors "github.com/arkstore/catalog-module/internal/api/errors"
	"github.com/arkstore/catalog-module/internal/repository"
	"github.com/arkstore/catalog-module/internal/transform"
)

// entityListResponse — ответ листинга сущностей.
type entityListResponse struct {
	Total    int                  `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
	Entities []transform.Document `json:"entities"`
}

// ListEntities возвращает страницу сущностей каталога.
// Фильтры: memberOf (URI коллекции), entityType (список через запятую).
func (h *APIHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	q := r.URL.Query()
	params := repository.EntityListParams{
		SortBy:    q.Get("sort"),
		SortOrder: q.Get("order"),
		Limit:     limit,
		Offset:    offset,
	}

	if memberOf := q.Get("memberOf"); memberOf != "" {
		params.MemberOf = &memberOf
	}
	if entityType := q.Get("entityType"); entityType != "" {
		params.EntityTypes = splitCSV(entityType)
	}

	rc := &transform.RequestContext{Request: r}
	result, err := h.entities.List(r.Context(), params, rc)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entityListResponse{
		Total:    result.Total,
		Limit:    result.Limit,
		Offset:   result.Offset,
		Entities: result.Entities,
	})
}

// splitCSV разбирает список значений через запятую, отбрасывая пустые.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
