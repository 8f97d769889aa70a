package contenthandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/arkstore/catalog-module/internal/delivery"
	"github.com/arkstore/catalog-module/internal/domain/model"
	"github.com/arkstore/catalog-module/internal/repository"
)

// Контекст и профиль RO-Crate.
const (
	crateContext   = "https://w3id.org/ro/crate/1.1/context"
	crateProfile   = "https://w3id.org/ro/crate/1.1"
	crateMediaType = "application/ld+json"
)

// CrateHandler — сборка RO-Crate метаданных-документа сущности:
// сама сущность как корневой dataset плюс её файлы (один batched-запрос).
// Документ собирается на каждый запрос и не кэшируется.
type CrateHandler struct {
	files  repository.FileRepository
	logger *slog.Logger
}

// NewCrateHandler создаёт RO-Crate handler.
func NewCrateHandler(files repository.FileRepository, logger *slog.Logger) *CrateHandler {
	return &CrateHandler{
		files:  files,
		logger: logger.With(slog.String("component", "crate_handler")),
	}
}

// Get собирает документ и возвращает Stream-вариант.
func (h *CrateHandler) Get(ctx context.Context, record *model.EntityRecord) (delivery.FileResult, error) {
	doc, err := h.build(ctx, record)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("сериализация RO-Crate для %s: %w", record.ID, err)
	}

	return delivery.Stream{
		Body: io.NopCloser(bytes.NewReader(body)),
		Meta: delivery.Metadata{
			ContentType:   crateMediaType,
			ContentLength: int64(len(body)),
		},
	}, nil
}

// Head возвращает метаданные документа. Размер неизвестен без сборки,
// поэтому Content-Length опускается (-1).
func (h *CrateHandler) Head(_ context.Context, _ *model.EntityRecord) (*delivery.Metadata, error) {
	return &delivery.Metadata{
		ContentType:   crateMediaType,
		ContentLength: -1,
	}, nil
}

// build собирает JSON-LD граф документа.
func (h *CrateHandler) build(ctx context.Context, record *model.EntityRecord) (map[string]any, error) {
	files, err := h.files.GetByMemberOf(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("выборка файлов сущности %s: %w", record.ID, err)
	}

	root := map[string]any{
		"@id":     record.ID,
		"@type":   "Dataset",
		"name":    record.Name,
		"license": map[string]any{"@id": record.MetadataLicenseID},
	}
	if record.Description != nil {
		root["description"] = *record.Description
	}

	graph := []any{
		map[string]any{
			"@id":        "ro-crate-metadata.json",
			"@type":      "CreativeWork",
			"conformsTo": map[string]any{"@id": crateProfile},
			"about":      map[string]any{"@id": record.ID},
		},
		root,
	}

	if len(files) > 0 {
		parts := make([]any, 0, len(files))
		for _, f := range files {
			parts = append(parts, map[string]any{"@id": f.ID})
			graph = append(graph, map[string]any{
				"@id":            f.ID,
				"@type":          "File",
				"name":           f.Filename,
				"encodingFormat": f.MediaType,
				"contentSize":    f.Size,
				"license":        map[string]any{"@id": f.ContentLicenseID},
			})
		}
		root["hasPart"] = parts
	}

	return map[string]any{
		"@context": crateContext,
		"@graph":   graph,
	}, nil
}
