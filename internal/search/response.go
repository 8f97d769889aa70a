package search

// response.go — разбор ответа Elasticsearch: hits, агрегации,
// нормализация total.

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Ошибки разбора ответа движка.
var (
	// ErrMalformedResponse — ответ без ожидаемой структуры hits.
	// Нарушение контракта коллаборатора: internal error, а не пустой результат.
	ErrMalformedResponse = errors.New("ответ поискового движка без структуры hits")
)

// Hit — один результат индекса: идентификатор плюс метаданные релевантности.
type Hit struct {
	// ID — URI сущности (_id документа индекса)
	ID string
	// Score — релевантность (0 при явной сортировке)
	Score float64
	// Highlight — подсвеченные фрагменты по полям
	Highlight map[string][]string
}

// FacetBucket — одно значение фасета с количеством.
type FacetBucket struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Result — разобранный ответ движка.
type Result struct {
	// Total — нормализованное общее количество совпадений
	Total int64
	// Hits — результаты страницы в порядке движка
	Hits []Hit
	// Facets — фасетные агрегации: поле → buckets
	Facets map[string][]FacetBucket
	// GeohashGrid — geohash-ячейка → количество (nil если не запрашивалась)
	GeohashGrid map[string]int64
}

// rawResponse — структура ответа _search в объёме, нужном компилятору.
type rawResponse struct {
	Hits *struct {
		Total json.RawMessage `json:"total"`
		Hits  []struct {
			ID        string              `json:"_id"`
			Score     *float64            `json:"_score"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// rawTermsAgg — terms-агрегация фасета.
type rawTermsAgg struct {
	Buckets []struct {
		Key      any   `json:"key"`
		DocCount int64 `json:"doc_count"`
	} `json:"buckets"`
}

// rawGeohashAgg — filter-агрегация с вложенной geohash-сеткой.
type rawGeohashAgg struct {
	Grid rawTermsAgg `json:"grid"`
}

// ParseResponse разбирает сырой ответ _search.
// Отсутствие hits — ошибка контракта; пустой hits.hits — нормальный
// пустой результат, фасеты при этом всё равно разбираются.
func ParseResponse(body []byte) (*Result, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("разбор ответа движка: %w", err)
	}
	if raw.Hits == nil {
		return nil, ErrMalformedResponse
	}

	result := &Result{
		Total: normalizeTotal(raw.Hits.Total),
		Hits:  make([]Hit, 0, len(raw.Hits.Hits)),
	}
	for _, h := range raw.Hits.Hits {
		hit := Hit{ID: h.ID, Highlight: h.Highlight}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		result.Hits = append(result.Hits, hit)
	}

	if err := parseAggregations(raw.Aggregations, result); err != nil {
		return nil, err
	}
	return result, nil
}

// normalizeTotal приводит hits.total к одному числу.
// Движок может вернуть либо голое число (старый формат), либо объект
// {value, relation} (capped/uncapped). Отсутствие — 0.
func normalizeTotal(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var obj struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	return 0
}

// parseAggregations разбирает фасеты и geohash-сетку.
// Отсутствующие агрегации (пустой результат) не считаются ошибкой.
func parseAggregations(aggs map[string]json.RawMessage, result *Result) error {
	if len(aggs) == 0 {
		return nil
	}

	result.Facets = make(map[string][]FacetBucket, len(facetFields))
	for _, field := range facetFields {
		raw, ok := aggs[field]
		if !ok {
			continue
		}
		var terms rawTermsAgg
		if err := json.Unmarshal(raw, &terms); err != nil {
			return fmt.Errorf("разбор фасета %s: %w", field, err)
		}
		buckets := make([]FacetBucket, 0, len(terms.Buckets))
		for _, b := range terms.Buckets {
			buckets = append(buckets, FacetBucket{
				Name:  fmt.Sprintf("%v", b.Key),
				Count: b.DocCount,
			})
		}
		result.Facets[field] = buckets
	}

	if raw, ok := aggs[geohashAggName]; ok {
		var geo rawGeohashAgg
		if err := json.Unmarshal(raw, &geo); err != nil {
			return fmt.Errorf("разбор geohash-сетки: %w", err)
		}
		result.GeohashGrid = make(map[string]int64, len(geo.Grid.Buckets))
		for _, b := range geo.Grid.Buckets {
			result.GeohashGrid[fmt.Sprintf("%v", b.Key)] = b.DocCount
		}
	}
	return nil
}
