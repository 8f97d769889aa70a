// file.go — обработчики выдачи контента файла.
// GET /api/v1/file/{id} — контент (redirect, stream или файл с диска).
// HEAD /api/v1/file/{id} — только метаданные контента.
//
// Query-параметры GET:
//   - disposition=inline|attachment — Content-Disposition
//   - filename=... — переопределение имени файла
//   - noRedirect=true — вместо 302 вернуть 200 с {"location": url}
//     (для клиентов, не умеющих redirects — media players)
package handlers

import (
	"net/http"

	apierrors "github.com/arkstore/catalog-module/internal/api/errors"
	"github.com/arkstore/catalog-module/internal/delivery"
	"github.com/arkstore/catalog-module/internal/transform"
)

// GetFileContent отдаёт контент файла.
func (h *APIHandler) GetFileContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	rc := &transform.RequestContext{Request: r}
	record, result, err := h.content.FetchFile(r.Context(), rc, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	opts := deliveryOptions(r, true)
	if opts.Filename == "" {
		opts.Filename = record.Filename
	}

	if err := h.negotiator.WriteResult(w, r, result, opts); err != nil {
		h.handleServiceError(w, err)
	}
}

// HeadFileContent отдаёт метаданные контента файла без тела.
func (h *APIHandler) HeadFileContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	rc := &transform.RequestContext{Request: r}
	_, meta, err := h.content.FetchFileMeta(r.Context(), rc, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.negotiator.WriteMetadata(w, meta)
}

// deliveryOptions собирает параметры отдачи из query string.
// download=true для контентных endpoints: выставляется Content-Disposition.
func deliveryOptions(r *http.Request, download bool) delivery.Options {
	q := r.URL.Query()
	return delivery.Options{
		NoRedirect:  q.Get("noRedirect") == "true",
		Download:    download,
		Disposition: q.Get("disposition"),
		Filename:    q.Get("filename"),
	}
}
