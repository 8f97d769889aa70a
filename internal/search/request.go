// Пакет search — компилятор поисковых запросов: строит Elasticsearch-запрос
// с агрегациями и сортировкой из декларативного SearchRequest и сверяет
// результаты индекса с системой записи (PostgreSQL).
package search

import (
	"errors"
	"fmt"
)

// Режимы поиска.
const (
	// TypeBasic — fuzzy multi-field match (recall важнее precision).
	TypeBasic = "basic"
	// TypeAdvanced — boolean query string с AND между термами
	// (precision важнее recall). Выбор осознанно отдан вызывающему.
	TypeAdvanced = "advanced"
)

// Ключ сортировки по релевантности: сортировка движка по score.
const SortRelevance = "relevance"

// Пределы пагинации.
const (
	MinLimit = 1
	MaxLimit = 1000
)

// Максимальная точность geohash.
const MaxGeohashPrecision = 12

// Corner — угол ограничивающего прямоугольника.
type Corner struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BoundingBox — географический прямоугольник, заданный двумя
// произвольными углами. Компилятор сам нормализует их в диагональную
// конвенцию движка, какой бы угол вызывающий ни назвал «верхним правым».
type BoundingBox struct {
	TopRight   Corner `json:"topRight"`
	BottomLeft Corner `json:"bottomLeft"`
}

// Request — декларативный поисковый запрос.
type Request struct {
	// Query — строка поиска
	Query string `json:"query"`
	// SearchType — basic или advanced (по умолчанию basic)
	SearchType string `json:"searchType,omitempty"`
	// Filters — поле → точные значения; AND между полями
	Filters map[string][]string `json:"filters,omitempty"`
	// BoundingBox — географический фильтр (опционально)
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
	// GeohashPrecision — точность geohash-сетки 0–12 (0 = сетка не нужна)
	GeohashPrecision int `json:"geohashPrecision,omitempty"`
	// Limit — размер страницы 1–1000
	Limit int `json:"limit,omitempty"`
	// Offset — смещение ≥ 0
	Offset int `json:"offset,omitempty"`
	// Sort — ключ сортировки: id, name, createdAt, updatedAt, relevance
	Sort string `json:"sort,omitempty"`
	// Order — asc или desc
	Order string `json:"order,omitempty"`
}

// Поля индекса, по которым выполняется полнотекстовый поиск.
// name весит вдвое больше description.
var searchFields = []string{"name^2", "description"}

// sortFields — whitelist ключей сортировки (API-ключ → поле индекса).
// name сортируется по keyword-подполю: лексикографический порядок по
// сырой строке, а не по токенам анализатора.
var sortFields = map[string]string{
	"id":        "id",
	"name":      "name.keyword",
	"createdAt": "createdAt",
	"updatedAt": "updatedAt",
}

// Normalize подставляет дефолты в незаполненные поля запроса.
func (r *Request) Normalize() {
	if r.SearchType == "" {
		r.SearchType = TypeBasic
	}
	if r.Limit == 0 {
		r.Limit = 10
	}
	if r.Sort == "" {
		r.Sort = SortRelevance
	}
	if r.Order == "" {
		r.Order = "asc"
	}
}

// Validate проверяет запрос до обращения к каким-либо коллабораторам.
func (r *Request) Validate() error {
	if r.SearchType != TypeBasic && r.SearchType != TypeAdvanced {
		return fmt.Errorf("searchType: недопустимое значение %q, допустимые: basic, advanced", r.SearchType)
	}
	if r.Limit < MinLimit || r.Limit > MaxLimit {
		return fmt.Errorf("limit: значение %d вне диапазона %d–%d", r.Limit, MinLimit, MaxLimit)
	}
	if r.Offset < 0 {
		return errors.New("offset: значение не может быть отрицательным")
	}
	if r.GeohashPrecision < 0 || r.GeohashPrecision > MaxGeohashPrecision {
		return fmt.Errorf("geohashPrecision: значение %d вне диапазона 0–%d", r.GeohashPrecision, MaxGeohashPrecision)
	}
	if _, ok := sortFields[r.Sort]; !ok && r.Sort != SortRelevance {
		return fmt.Errorf("sort: недопустимый ключ %q", r.Sort)
	}
	if r.Order != "asc" && r.Order != "desc" {
		return fmt.Errorf("order: недопустимое значение %q, допустимые: asc, desc", r.Order)
	}
	return nil
}
