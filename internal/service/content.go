// content.go — сервис выдачи контента файлов и RO-Crate сущностей.
// Координирует кеш записей, репозиторий и FileHandler бэкенда хранения.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arkstore/catalog-module/internal/delivery"
	"github.com/arkstore/catalog-module/internal/domain/model"
	"github.com/arkstore/catalog-module/internal/repository"
	"github.com/arkstore/catalog-module/internal/transform"
)

// ContentService — сервис выдачи контента.
// Выдача гейтится той же лицензионной политикой, что и поле access
// в метаданных: закрытый контент не отдаётся даже по прямому URL.
type ContentService struct {
	fileRepo   repository.FileRepository
	entityRepo repository.EntityRepository
	cache      *FileRecordCache
	files      delivery.FileHandler
	crate      delivery.CrateHandler
	access     *AccessPolicy
	logger     *slog.Logger
}

// NewContentService создаёт сервис выдачи контента.
func NewContentService(
	fileRepo repository.FileRepository,
	entityRepo repository.EntityRepository,
	cache *FileRecordCache,
	files delivery.FileHandler,
	crate delivery.CrateHandler,
	access *AccessPolicy,
	logger *slog.Logger,
) *ContentService {
	return &ContentService{
		fileRepo:   fileRepo,
		entityRepo: entityRepo,
		cache:      cache,
		files:      files,
		crate:      crate,
		access:     access,
		logger:     logger.With(slog.String("component", "content_service")),
	}
}

// FetchFile возвращает запись файла и вариант выдачи его контента.
// Запись без контента в бэкенде ((nil, nil) от handler) отображается
// в ErrUnavailable — для клиента это тот же 404, что и отсутствие
// записи, но с отдельным сообщением.
func (cs *ContentService) FetchFile(ctx context.Context, rc *transform.RequestContext, id string) (*model.FileRecord, delivery.FileResult, error) {
	record, err := cs.getFileRecord(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !cs.access.Allows(rc, record.ContentLicenseID) {
		return nil, nil, fmt.Errorf("контент файла %s: %w", id, ErrForbidden)
	}

	result, err := cs.files.Get(ctx, record)
	if err != nil {
		return nil, nil, fmt.Errorf("получение контента файла %s: %w", id, err)
	}
	if result == nil {
		return nil, nil, fmt.Errorf("файл %s: %w", id, delivery.ErrUnavailable)
	}
	return record, result, nil
}

// FetchFileMeta возвращает запись файла и метаданные контента для HEAD.
func (cs *ContentService) FetchFileMeta(ctx context.Context, rc *transform.RequestContext, id string) (*model.FileRecord, *delivery.Metadata, error) {
	record, err := cs.getFileRecord(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !cs.access.Allows(rc, record.ContentLicenseID) {
		return nil, nil, fmt.Errorf("контент файла %s: %w", id, ErrForbidden)
	}

	meta, err := cs.files.Head(ctx, record)
	if err != nil {
		return nil, nil, fmt.Errorf("метаданные контента файла %s: %w", id, err)
	}
	if meta == nil {
		return nil, nil, fmt.Errorf("файл %s: %w", id, delivery.ErrUnavailable)
	}
	return record, meta, nil
}

// FetchCrate возвращает вариант выдачи RO-Crate метаданных сущности.
// Гейт — по лицензии метаданных: RO-Crate раскрывает описание записи.
func (cs *ContentService) FetchCrate(ctx context.Context, rc *transform.RequestContext, id string) (delivery.FileResult, error) {
	record, err := cs.entityRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение сущности: %w", err)
	}
	if !cs.access.Allows(rc, record.MetadataLicenseID) {
		return nil, fmt.Errorf("RO-Crate %s: %w", id, ErrForbidden)
	}

	result, err := cs.crate.Get(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("сборка RO-Crate для %s: %w", id, err)
	}
	if result == nil {
		return nil, fmt.Errorf("RO-Crate %s: %w", id, delivery.ErrUnavailable)
	}
	return result, nil
}

// getFileRecord получает запись файла из кеша или БД.
func (cs *ContentService) getFileRecord(ctx context.Context, id string) (*model.FileRecord, error) {
	if record, ok := cs.cache.Get(id); ok {
		cs.logger.Debug("Кеш hit для файла", slog.String("file_id", id))
		return record, nil
	}

	record, err := cs.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи файла: %w", err)
	}

	cs.cache.Put(id, record)
	return record, nil
}
