package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/arkstore/catalog-module/internal/domain/model"
)

// entityColumns — список столбцов таблицы entities для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const entityColumns = `pk, id, name, description, entity_type, member_of, root_collection,
	metadata_license_id, content_license_id, storage, created_at, updated_at`

// EntityListParams — параметры выборки сущностей.
// nil-указатель = фильтр не применяется.
type EntityListParams struct {
	// MemberOf — фильтр по родительской сущности (exact match по URI)
	MemberOf *string
	// EntityTypes — фильтр по типам сущностей (хотя бы один из списка)
	EntityTypes []string
	// SortBy — поле сортировки: id, name, createdAt, updatedAt
	SortBy string
	// SortOrder — направление: asc, desc
	SortOrder string
	// Limit — количество результатов
	Limit int
	// Offset — смещение
	Offset int
}

// EntityRepository — интерфейс доступа к таблице entities.
type EntityRepository interface {
	// GetByID возвращает сущность по URI.
	GetByID(ctx context.Context, id string) (*model.EntityRecord, error)
	// GetByIDs возвращает сущности по списку URI одним запросом.
	// Отсутствующие в каталоге URI просто не попадают в результат.
	GetByIDs(ctx context.Context, ids []string) ([]*model.EntityRecord, error)
	// GetReferences возвращает облегчённые ссылки {id, name} по списку URI
	// одним запросом. Отсутствующие URI не попадают в результат.
	GetReferences(ctx context.Context, ids []string) ([]*model.EntityReference, error)
	// List возвращает страницу сущностей по фильтрам.
	List(ctx context.Context, params EntityListParams) ([]*model.EntityRecord, error)
	// Count возвращает общее количество сущностей по тем же фильтрам.
	Count(ctx context.Context, params EntityListParams) (int, error)
}

// entityRepo — реализация EntityRepository через pgx.
type entityRepo struct {
	db DBTX
}

// NewEntityRepository создаёт репозиторий сущностей.
func NewEntityRepository(db DBTX) EntityRepository {
	return &entityRepo{db: db}
}

// GetByID возвращает сущность по URI или ErrNotFound.
func (r *entityRepo) GetByID(ctx context.Context, id string) (*model.EntityRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM entities WHERE id = $1`, entityColumns)

	e := &model.EntityRecord{}
	if err := scanEntity(r.db.QueryRow(ctx, query, id), e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сущности: %w", err)
	}
	return e, nil
}

// GetByIDs возвращает сущности по списку URI одним запросом.
func (r *entityRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.EntityRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM entities WHERE id = ANY($1)`, entityColumns)

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка batch-выборки сущностей: %w", err)
	}
	defer rows.Close()

	var result []*model.EntityRecord
	for rows.Next() {
		e := &model.EntityRecord{}
		if err := scanEntity(rows, e); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сущности: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// GetReferences возвращает ссылки {id, name} по списку URI одним запросом.
func (r *entityRepo) GetReferences(ctx context.Context, ids []string) ([]*model.EntityReference, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id, name FROM entities WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки ссылок: %w", err)
	}
	defer rows.Close()

	var result []*model.EntityReference
	for rows.Next() {
		ref := &model.EntityReference{}
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ссылки: %w", err)
		}
		result = append(result, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации ссылок: %w", err)
	}
	return result, nil
}

// List возвращает страницу сущностей с фильтрацией, сортировкой и пагинацией.
func (r *entityRepo) List(ctx context.Context, params EntityListParams) ([]*model.EntityRecord, error) {
	where, args := buildEntityWhere(params)
	argNum := len(args) + 1

	orderBy := buildOrderBy(entitySortColumns, params.SortBy, params.SortOrder)

	query := fmt.Sprintf(
		`SELECT %s FROM entities %s %s LIMIT $%d OFFSET $%d`,
		entityColumns, where, orderBy, argNum, argNum+1,
	)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки сущностей: %w", err)
	}
	defer rows.Close()

	var result []*model.EntityRecord
	for rows.Next() {
		e := &model.EntityRecord{}
		if err := scanEntity(rows, e); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сущности: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// Count возвращает общее количество сущностей по фильтрам (без LIMIT/OFFSET).
func (r *entityRepo) Count(ctx context.Context, params EntityListParams) (int, error) {
	where, args := buildEntityWhere(params)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM entities %s`, where)

	var total int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта сущностей: %w", err)
	}
	return total, nil
}

// scanEntity сканирует одну строку entities в EntityRecord.
// pgx.Row и pgx.Rows оба предоставляют Scan — общий интерфейс.
func scanEntity(row interface{ Scan(dest ...any) error }, e *model.EntityRecord) error {
	return row.Scan(
		&e.PK, &e.ID, &e.Name, &e.Description, &e.EntityType,
		&e.MemberOf, &e.RootCollection,
		&e.MetadataLicenseID, &e.ContentLicenseID, &e.Storage,
		&e.CreatedAt, &e.UpdatedAt,
	)
}

// buildEntityWhere строит WHERE-условие и аргументы для выборки сущностей.
func buildEntityWhere(params EntityListParams) (whereClause string, args []any) {
	var conditions []string
	argNum := 1

	// Фильтр по родительской сущности
	if params.MemberOf != nil && *params.MemberOf != "" {
		conditions = append(conditions, fmt.Sprintf("member_of = $%d", argNum))
		args = append(args, *params.MemberOf)
		argNum++
	}

	// Фильтр по типам сущностей (хотя бы один)
	if len(params.EntityTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("entity_type = ANY($%d)", argNum))
		args = append(args, params.EntityTypes)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// entitySortColumns — whitelist полей сортировки сущностей
// (API-ключ → столбец БД). Предотвращает SQL-инъекции.
var entitySortColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// buildOrderBy строит ORDER BY с безопасным whitelist полей.
// Неизвестный ключ сортировки отбрасывается валидацией на границе API,
// здесь он молча заменяется на id — детерминированный порядок в любом случае.
func buildOrderBy(columns map[string]string, sortBy, sortOrder string) string {
	column, ok := columns[sortBy]
	if !ok {
		column = "id"
	}

	direction := "ASC"
	if strings.EqualFold(sortOrder, "desc") {
		direction = "DESC"
	}

	return fmt.Sprintf("ORDER BY %s %s", column, direction)
}
