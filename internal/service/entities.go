// entities.go — сервис каталога сущностей.
// Координирует repository, resolver ссылок и pipeline трансформации.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arkstore/catalog-module/internal/repository"
	"github.com/arkstore/catalog-module/internal/resolver"
	"github.com/arkstore/catalog-module/internal/transform"
)

// Ошибки сервисного слоя.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrForbidden — лицензия записи не открыта текущему запросу.
	ErrForbidden = errors.New("доступ запрещён лицензией")
)

// EntityListResult — результат постраничного листинга сущностей.
type EntityListResult struct {
	// Entities — готовые к выдаче документы
	Entities []transform.Document
	// Total — общее количество записей по фильтру
	Total int
	// Limit — запрошенный лимит
	Limit int
	// Offset — текущее смещение
	Offset int
}

// EntityService — сервис чтения каталога сущностей.
type EntityService struct {
	entityRepo repository.EntityRepository
	resolver   *resolver.Resolver
	pipeline   *transform.EntityPipeline
	logger     *slog.Logger
}

// NewEntityService создаёт сервис каталога.
func NewEntityService(
	entityRepo repository.EntityRepository,
	res *resolver.Resolver,
	pipeline *transform.EntityPipeline,
	logger *slog.Logger,
) *EntityService {
	return &EntityService{
		entityRepo: entityRepo,
		resolver:   res,
		pipeline:   pipeline,
		logger:     logger.With(slog.String("component", "entity_service")),
	}
}

// Get возвращает одну сущность каталога, прогнанную через pipeline.
func (s *EntityService) Get(ctx context.Context, id string, rc *transform.RequestContext) (transform.Document, error) {
	record, err := s.entityRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение сущности: %w", err)
	}

	refs, err := s.resolver.ResolveEntity(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("разрешение ссылок: %w", err)
	}

	doc, err := s.pipeline.Run(ctx, record, refs, rc)
	if err != nil {
		return nil, fmt.Errorf("трансформация сущности: %w", err)
	}
	return doc, nil
}

// List возвращает страницу сущностей. Все записи страницы проходят
// pipeline; ошибка трансформации любой записи прерывает весь запрос.
func (s *EntityService) List(ctx context.Context, params repository.EntityListParams, rc *transform.RequestContext) (*EntityListResult, error) {
	records, err := s.entityRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("листинг сущностей: %w", err)
	}

	total, err := s.entityRepo.Count(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("подсчёт сущностей: %w", err)
	}

	refs, err := s.resolver.ResolveEntities(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("разрешение ссылок: %w", err)
	}

	docs, err := s.pipeline.RunAll(ctx, records, refs, rc)
	if err != nil {
		return nil, fmt.Errorf("трансформация сущностей: %w", err)
	}

	s.logger.Debug("Листинг выполнен",
		slog.Int("total", total),
		slog.Int("returned", len(docs)),
	)

	return &EntityListResult{
		Entities: docs,
		Total:    total,
		Limit:    params.Limit,
		Offset:   params.Offset,
	}, nil
}
