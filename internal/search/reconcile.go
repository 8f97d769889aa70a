package search

// reconcile.go — сверка результатов индекса с системой записи.
// Индекс возвращает только идентификаторы и метаданные релевантности;
// канонические записи добираются из PostgreSQL одним batched-запросом.

import (
	"log/slog"

	"github.com/arkstore/catalog-module/internal/domain/model"
)

// ReconciledHit — hit индекса, сопоставленный с канонической записью.
type ReconciledHit struct {
	Record *model.EntityRecord
	Hit    Hit
}

// Reconcile сопоставляет hits с каноническими записями по идентификатору,
// сохраняя порядок движка. Hit без записи в системе записи (дрейф
// индекс/БД при eventual consistency) отбрасывается с warning — это
// ожидаемое состояние, не повод ронять запрос.
func Reconcile(hits []Hit, records []*model.EntityRecord, logger *slog.Logger) []ReconciledHit {
	byID := make(map[string]*model.EntityRecord, len(records))
	for _, record := range records {
		byID[record.ID] = record
	}

	result := make([]ReconciledHit, 0, len(hits))
	for _, hit := range hits {
		record, ok := byID[hit.ID]
		if !ok {
			logger.Warn("Hit индекса без записи в каталоге, пропускаем",
				slog.String("id", hit.ID),
			)
			continue
		}
		result = append(result, ReconciledHit{Record: record, Hit: hit})
	}
	return result
}

// MergeSearchMeta добавляет метаданные релевантности в преобразованный
// документ как соседние поля. Поля, созданные pipeline, никогда не
// перезаписываются.
func MergeSearchMeta(doc map[string]any, hit Hit) map[string]any {
	if _, exists := doc["searchScore"]; !exists {
		doc["searchScore"] = hit.Score
	}
	if len(hit.Highlight) > 0 {
		if _, exists := doc["highlight"]; !exists {
			doc["highlight"] = hit.Highlight
		}
	}
	return doc
}
