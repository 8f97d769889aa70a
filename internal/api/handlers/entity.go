// entity.go — обработчики одиночной сущности каталога.
// GET /api/v1/entity/{id} — преобразованный документ сущности.
// GET /api/v1/entity/{id}/rocrate — RO-Crate метаданные сущности.
package handlers

import (
	"net/http"

	apierrors "github.com/arkstore/catalog-module/internal/api/errors"
	"github.com/arkstore/catalog-module/internal/transform"
)

// GetEntity возвращает одну сущность каталога.
func (h *APIHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	rc := &transform.RequestContext{Request: r}
	doc, err := h.entities.Get(r.Context(), id, rc)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// GetEntityCrate отдаёт RO-Crate документ сущности.
func (h *APIHandler) GetEntityCrate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	result, err := h.content.FetchCrate(r.Context(), &transform.RequestContext{Request: r}, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if err := h.negotiator.WriteResult(w, r, result, deliveryOptions(r, false)); err != nil {
		h.handleServiceError(w, err)
	}
}
