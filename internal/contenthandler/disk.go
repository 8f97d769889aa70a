// Пакет contenthandler — реализации pluggable content handlers.
// DiskHandler — файлы на локальном диске (с опциональным offload на
// reverse proxy), S3Handler — presigned redirects в объектное хранилище,
// CrateHandler — сборка RO-Crate документа сущности.
package contenthandler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arkstore/catalog-module/internal/delivery"
	"github.com/arkstore/catalog-module/internal/domain/model"
)

// Ключ относительного пути файла в storage-мешке записи.
const storagePathKey = "path"

// DiskHandler — отдача файлов с локального диска.
// Относительный путь берётся из storage-мешка канонической записи;
// ядро этот мешок клиентам никогда не отдаёт.
type DiskHandler struct {
	root        string
	accelPrefix string
	logger      *slog.Logger
}

// NewDiskHandler создаёт disk handler.
// root — корень хранилища на диске.
// accelPrefix — префикс internal location для X-Accel-Redirect;
// пустая строка отключает offload, файлы отдаёт процесс приложения.
func NewDiskHandler(root, accelPrefix string, logger *slog.Logger) *DiskHandler {
	return &DiskHandler{
		root:        root,
		accelPrefix: strings.TrimRight(accelPrefix, "/"),
		logger:      logger.With(slog.String("component", "disk_handler")),
	}
}

// Get возвращает FilePath-вариант (с accel-путём при настроенном префиксе).
// Отсутствие пути в storage-мешке или файла на диске — мягкое отсутствие.
func (h *DiskHandler) Get(_ context.Context, record *model.FileRecord) (delivery.FileResult, error) {
	rel, ok := h.relPath(record.Storage)
	if !ok {
		return nil, nil
	}

	full, err := h.securePath(rel)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			h.logger.Warn("Файл записи отсутствует на диске",
				slog.String("id", record.ID),
				slog.String("path", full),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("stat файла %s: %w", full, err)
	}

	result := delivery.FilePath{
		Path: full,
		Meta: fileMeta(record),
	}
	if h.accelPrefix != "" {
		result.AccelPath = h.accelPrefix + "/" + filepath.ToSlash(rel)
	}
	return result, nil
}

// Head возвращает метаданные без выдачи пути — дескрипторы не открываются.
func (h *DiskHandler) Head(_ context.Context, record *model.FileRecord) (*delivery.Metadata, error) {
	rel, ok := h.relPath(record.Storage)
	if !ok {
		return nil, nil
	}
	full, err := h.securePath(rel)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat файла %s: %w", full, err)
	}

	meta := fileMeta(record)
	return &meta, nil
}

// relPath извлекает относительный путь из storage-мешка.
func (h *DiskHandler) relPath(storage map[string]any) (string, bool) {
	raw, ok := storage[storagePathKey]
	if !ok {
		return "", false
	}
	rel, ok := raw.(string)
	if !ok || rel == "" {
		return "", false
	}
	return rel, true
}

// securePath резолвит относительный путь под корнем хранилища
// и отклоняет выход за его пределы.
func (h *DiskHandler) securePath(rel string) (string, error) {
	full := filepath.Join(h.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(full, filepath.Clean(h.root)+string(filepath.Separator)) {
		return "", fmt.Errorf("путь %q выходит за пределы корня хранилища", rel)
	}
	return full, nil
}

// fileMeta строит метаданные отдачи из канонической записи.
func fileMeta(record *model.FileRecord) delivery.Metadata {
	updated := record.UpdatedAt
	return delivery.Metadata{
		ContentType:   record.MediaType,
		ContentLength: record.Size,
		LastModified:  &updated,
	}
}
