package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/arkstore/catalog-module/internal/domain/model"
	"github.com/arkstore/catalog-module/internal/resolver"
	"github.com/arkstore/catalog-module/internal/search"
	"github.com/arkstore/catalog-module/internal/transform"
)

// fakeEngine — мок поискового движка, отдающий канонический JSON-ответ.
type fakeEngine struct {
	response []byte
	err      error
	gotBody  []byte
}

func (e *fakeEngine) Search(_ context.Context, body []byte) ([]byte, error) {
	e.gotBody = body
	if e.err != nil {
		return nil, e.err
	}
	return e.response, nil
}

// engineResponse собирает минимальный валидный ответ _search.
func engineResponse(t *testing.T, hits []map[string]any, total int64) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"hits": map[string]any{
			"total": map[string]any{"value": total, "relation": "eq"},
			"hits":  hits,
		},
		"aggregations": map[string]any{
			"language": map[string]any{
				"buckets": []map[string]any{
					{"key": "ru", "doc_count": 12},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("сборка ответа движка: %v", err)
	}
	return raw
}

func newSearchService(t *testing.T, engine SearchEngine, repo *fakeEntityRepo) *SearchService {
	t.Helper()
	policy := NewAccessPolicy(nil, "")
	pipeline, err := transform.NewEntityPipeline(policy.EntityAccess())
	if err != nil {
		t.Fatalf("NewEntityPipeline: %v", err)
	}
	return NewSearchService(engine, repo, resolver.New(repo, discardLogger()), pipeline, discardLogger())
}

func searchRequest(query string) *search.Request {
	req := &search.Request{Query: query}
	req.Normalize()
	return req
}

func TestSearch(t *testing.T) {
	engine := &fakeEngine{
		response: engineResponse(t, []map[string]any{
			{"_id": "arcp://name,corpus/item/2", "_score": 9.1},
			{"_id": "arcp://name,corpus/item/1", "_score": 3.4},
		}, 42),
	}

	repo := &fakeEntityRepo{
		getByIDsFunc: func(_ context.Context, _ []string) ([]*model.EntityRecord, error) {
			// БД отдаёт записи в своём порядке — не в порядке релевантности.
			return []*model.EntityRecord{
				{ID: "arcp://name,corpus/item/1", EntityType: model.EntityTypeObject},
				{ID: "arcp://name,corpus/item/2", EntityType: model.EntityTypeObject},
			}, nil
		},
	}

	svc := newSearchService(t, engine, repo)

	result, err := svc.Search(context.Background(), searchRequest("пауза"), nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if result.Total != 42 {
		t.Errorf("неверный total: %d", result.Total)
	}
	if len(result.Entities) != 2 {
		t.Fatalf("ожидались 2 документа, получено %d", len(result.Entities))
	}
	// Порядок страницы — порядок релевантности движка, не порядок БД.
	if result.Entities[0]["id"] != "arcp://name,corpus/item/2" ||
		result.Entities[1]["id"] != "arcp://name,corpus/item/1" {
		t.Errorf("нарушен порядок релевантности: %v, %v",
			result.Entities[0]["id"], result.Entities[1]["id"])
	}
	// Метаданные релевантности вливаются в документы.
	if score, ok := result.Entities[0]["searchScore"].(float64); !ok || score != 9.1 {
		t.Errorf("searchScore не влит: %v", result.Entities[0]["searchScore"])
	}
	if len(result.Facets["language"]) != 1 || result.Facets["language"][0].Name != "ru" {
		t.Errorf("фасеты не переданы: %v", result.Facets)
	}
	if result.GeohashGrid != nil {
		t.Errorf("geohash-сетка не запрашивалась: %v", result.GeohashGrid)
	}

	// Движок получает скомпилированный запрос, а не сырую строку.
	var compiled map[string]any
	if err := json.Unmarshal(engine.gotBody, &compiled); err != nil {
		t.Fatalf("тело запроса к движку не JSON: %v", err)
	}
	if _, ok := compiled["query"]; !ok {
		t.Errorf("в теле нет query-блока: %v", compiled)
	}
}

func TestSearchDropsDriftedHits(t *testing.T) {
	// Индекс знает о записи, которой уже нет в каталоге:
	// hit отбрасывается, остальная страница отдаётся.
	engine := &fakeEngine{
		response: engineResponse(t, []map[string]any{
			{"_id": "arcp://name,corpus/item/1", "_score": 5.0},
			{"_id": "arcp://name,deleted", "_score": 4.0},
		}, 2),
	}

	repo := &fakeEntityRepo{
		getByIDsFunc: func(_ context.Context, _ []string) ([]*model.EntityRecord, error) {
			return []*model.EntityRecord{
				{ID: "arcp://name,corpus/item/1", EntityType: model.EntityTypeObject},
			}, nil
		},
	}

	svc := newSearchService(t, engine, repo)

	result, err := svc.Search(context.Background(), searchRequest("пауза"), nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("дрейфовый hit должен отбрасываться: %d документов", len(result.Entities))
	}
	if result.Entities[0]["id"] != "arcp://name,corpus/item/1" {
		t.Errorf("неверный выживший документ: %v", result.Entities[0]["id"])
	}
	// Total движка не корректируется — следующая переиндексация его выправит.
	if result.Total != 2 {
		t.Errorf("total должен оставаться total движка: %d", result.Total)
	}
}

func TestSearchEmptyHitsSkipsDatabase(t *testing.T) {
	engine := &fakeEngine{response: engineResponse(t, nil, 0)}

	repo := &fakeEntityRepo{
		getByIDsFunc: func(_ context.Context, _ []string) ([]*model.EntityRecord, error) {
			t.Fatal("пустая страница не должна обращаться к БД")
			return nil, nil
		},
	}

	svc := newSearchService(t, engine, repo)

	result, err := svc.Search(context.Background(), searchRequest("ничего"), nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Entities == nil || len(result.Entities) != 0 {
		t.Errorf("ожидался пустой (не nil) список: %v", result.Entities)
	}
}

func TestSearchEngineError(t *testing.T) {
	engineErr := errors.New("движок недоступен")
	svc := newSearchService(t, &fakeEngine{err: engineErr}, &fakeEntityRepo{})

	_, err := svc.Search(context.Background(), searchRequest("пауза"), nil)
	if !errors.Is(err, engineErr) {
		t.Fatalf("ошибка движка должна подниматься: %v", err)
	}
}

func TestSearchResultOmitsEmptyFacets(t *testing.T) {
	// Ответ движка без агрегаций: в JSON не должно быть "facets": null.
	engine := &fakeEngine{
		response: []byte(`{"hits":{"total":{"value":0,"relation":"eq"},"hits":[]}}`),
	}
	svc := newSearchService(t, engine, &fakeEntityRepo{})

	result, err := svc.Search(context.Background(), searchRequest("пауза"), nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("сериализация результата: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("разбор результата: %v", err)
	}
	if _, present := fields["facets"]; present {
		t.Error("пустые фасеты не должны попадать в ответ")
	}
	if _, present := fields["geohashGrid"]; present {
		t.Error("пустая geohash-сетка не должна попадать в ответ")
	}
}
