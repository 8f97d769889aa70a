// Пакет resolver — пакетное разрешение родительских ссылок
// memberOf/rootCollection в облегчённые {id, name}.
//
// Ключевое проектное решение: один batched-запрос к БД на весь пакет
// записей вместо запроса на запись — O(1) round trips вместо O(n),
// меньше давления на пул соединений.
package resolver

import (
	"context"
	"log/slog"

	"github.com/arkstore/catalog-module/internal/domain/model"
	"github.com/arkstore/catalog-module/internal/repository"
)

// Resolver — резолвер родительских ссылок.
type Resolver struct {
	entities repository.EntityRepository
	logger   *slog.Logger
}

// New создаёт резолвер.
func New(entities repository.EntityRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		entities: entities,
		logger:   logger.With(slog.String("component", "resolver")),
	}
}

// ResolveEntities разрешает ссылки для пакета сущностей.
// URI, отсутствующие в каталоге, просто отсутствуют в карте —
// вызывающий код отображает их в null, а не в ошибку.
// Пустой пакет завершается без обращения к БД.
func (r *Resolver) ResolveEntities(ctx context.Context, records []*model.EntityRecord) (map[string]*model.EntityReference, error) {
	ids := make([]string, 0, len(records)*2)
	seen := make(map[string]bool, len(records)*2)
	for _, record := range records {
		ids = appendID(ids, seen, record.MemberOf)
		ids = appendID(ids, seen, record.RootCollection)
	}
	return r.resolve(ctx, ids)
}

// ResolveEntity разрешает ссылки одиночной сущности.
func (r *Resolver) ResolveEntity(ctx context.Context, record *model.EntityRecord) (map[string]*model.EntityReference, error) {
	return r.ResolveEntities(ctx, []*model.EntityRecord{record})
}

// ResolveFiles разрешает ссылки для пакета файлов.
func (r *Resolver) ResolveFiles(ctx context.Context, records []*model.FileRecord) (map[string]*model.EntityReference, error) {
	ids := make([]string, 0, len(records)*2)
	seen := make(map[string]bool, len(records)*2)
	for _, record := range records {
		ids = appendID(ids, seen, &record.MemberOf)
		ids = appendID(ids, seen, &record.RootCollection)
	}
	return r.resolve(ctx, ids)
}

// resolve выполняет единственный batched-запрос и строит карту.
func (r *Resolver) resolve(ctx context.Context, ids []string) (map[string]*model.EntityReference, error) {
	if len(ids) == 0 {
		return map[string]*model.EntityReference{}, nil
	}

	refs, err := r.entities.GetReferences(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*model.EntityReference, len(refs))
	for _, ref := range refs {
		result[ref.ID] = ref
	}

	if len(result) < len(ids) {
		// Висячие ссылки — ожидаемое состояние (родитель удалён),
		// наружу они отображаются в null.
		r.logger.Debug("Часть родительских ссылок не разрешена",
			slog.Int("requested", len(ids)),
			slog.Int("resolved", len(result)),
		)
	}
	return result, nil
}

// appendID добавляет непустой URI в набор без дубликатов.
func appendID(ids []string, seen map[string]bool, id *string) []string {
	if id == nil || *id == "" || seen[*id] {
		return ids
	}
	seen[*id] = true
	return append(ids, *id)
}
