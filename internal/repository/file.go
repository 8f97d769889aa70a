package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arkstore/catalog-module/internal/domain/model"
)

// fileColumns — список столбцов таблицы files для SELECT-запросов.
const fileColumns = `pk, id, filename, media_type, size, member_of, root_collection,
	content_license_id, storage, created_at, updated_at`

// FileListParams — параметры выборки файлов.
type FileListParams struct {
	// MemberOf — фильтр по родительской сущности (exact match по URI)
	MemberOf *string
	// SortBy — поле сортировки: id, filename, createdAt, updatedAt
	SortBy string
	// SortOrder — направление: asc, desc
	SortOrder string
	// Limit — количество результатов
	Limit int
	// Offset — смещение
	Offset int
}

// FileRepository — интерфейс доступа к таблице files.
type FileRepository interface {
	// GetByID возвращает файл по URI.
	GetByID(ctx context.Context, id string) (*model.FileRecord, error)
	// GetByMemberOf возвращает все файлы сущности одним запросом
	// (используется при сборке метаданных RO-Crate).
	GetByMemberOf(ctx context.Context, memberOf string) ([]*model.FileRecord, error)
	// List возвращает страницу файлов по фильтрам.
	List(ctx context.Context, params FileListParams) ([]*model.FileRecord, error)
	// Count возвращает общее количество файлов по тем же фильтрам.
	Count(ctx context.Context, params FileListParams) (int, error)
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// GetByID возвращает файл по URI или ErrNotFound.
func (r *fileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)

	f := &model.FileRecord{}
	if err := scanFile(r.db.QueryRow(ctx, query, id), f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// GetByMemberOf возвращает все файлы сущности, отсортированные по имени.
func (r *fileRepo) GetByMemberOf(ctx context.Context, memberOf string) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE member_of = $1 ORDER BY filename ASC`, fileColumns)

	rows, err := r.db.Query(ctx, query, memberOf)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки файлов сущности: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// List возвращает страницу файлов с фильтрацией, сортировкой и пагинацией.
func (r *fileRepo) List(ctx context.Context, params FileListParams) ([]*model.FileRecord, error) {
	where, args := buildFileWhere(params)
	argNum := len(args) + 1

	orderBy := buildOrderBy(fileSortColumns, params.SortBy, params.SortOrder)

	query := fmt.Sprintf(
		`SELECT %s FROM files %s %s LIMIT $%d OFFSET $%d`,
		fileColumns, where, orderBy, argNum, argNum+1,
	)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки файлов: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// Count возвращает общее количество файлов по фильтрам.
func (r *fileRepo) Count(ctx context.Context, params FileListParams) (int, error) {
	where, args := buildFileWhere(params)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM files %s`, where)

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}
	return total, nil
}

// scanFile сканирует одну строку files в FileRecord.
func scanFile(row interface{ Scan(dest ...any) error }, f *model.FileRecord) error {
	return row.Scan(
		&f.PK, &f.ID, &f.Filename, &f.MediaType, &f.Size,
		&f.MemberOf, &f.RootCollection,
		&f.ContentLicenseID, &f.Storage,
		&f.CreatedAt, &f.UpdatedAt,
	)
}

// collectFiles вычитывает все строки курсора в срез FileRecord.
func collectFiles(rows pgx.Rows) ([]*model.FileRecord, error) {
	var result []*model.FileRecord
	for rows.Next() {
		f := &model.FileRecord{}
		if err := scanFile(rows, f); err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// buildFileWhere строит WHERE-условие и аргументы для выборки файлов.
func buildFileWhere(params FileListParams) (whereClause string, args []any) {
	if params.MemberOf != nil && *params.MemberOf != "" {
		return "WHERE member_of = $1", []any{*params.MemberOf}
	}
	return "", nil
}

// fileSortColumns — whitelist полей сортировки файлов.
var fileSortColumns = map[string]string{
	"id":        "id",
	"filename":  "filename",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}
