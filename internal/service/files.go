// files.go — сервис каталога файлов.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arkstore/catalog-module/internal/repository"
	"github.com/arkstore/catalog-module/internal/resolver"
	"github.com/arkstore/catalog-module/internal/transform"
)

// FileListResult — результат постраничного листинга файлов.
type FileListResult struct {
	// Files — готовые к выдаче документы
	Files []transform.Document
	// Total — общее количество записей по фильтру
	Total int
	// Limit — запрошенный лимит
	Limit int
	// Offset — текущее смещение
	Offset int
}

// FileService — сервис чтения каталога файлов.
type FileService struct {
	fileRepo repository.FileRepository
	resolver *resolver.Resolver
	pipeline *transform.FilePipeline
	logger   *slog.Logger
}

// NewFileService создаёт сервис каталога файлов.
func NewFileService(
	fileRepo repository.FileRepository,
	res *resolver.Resolver,
	pipeline *transform.FilePipeline,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		resolver: res,
		pipeline: pipeline,
		logger:   logger.With(slog.String("component", "file_service")),
	}
}

// List возвращает страницу файлов. Семантика ошибок та же, что и у
// EntityService.List: сбой pipeline любой записи прерывает запрос.
func (s *FileService) List(ctx context.Context, params repository.FileListParams, rc *transform.RequestContext) (*FileListResult, error) {
	records, err := s.fileRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("листинг файлов: %w", err)
	}

	total, err := s.fileRepo.Count(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("подсчёт файлов: %w", err)
	}

	refs, err := s.resolver.ResolveFiles(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("разрешение ссылок: %w", err)
	}

	docs, err := s.pipeline.RunAll(ctx, records, refs, rc)
	if err != nil {
		return nil, fmt.Errorf("трансформация файлов: %w", err)
	}

	s.logger.Debug("Листинг файлов выполнен",
		slog.Int("total", total),
		slog.Int("returned", len(docs)),
	)

	return &FileListResult{
		Files:  docs,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}
