package search

import (
	"log/slog"
	"testing"

	"github.com/arkstore/catalog-module/internal/domain/model"
)

// TestReconcile_PreservesEngineOrder проверяет сохранение порядка
// релевантности движка независимо от порядка записей БД.
func TestReconcile_PreservesEngineOrder(t *testing.T) {
	hits := []Hit{{ID: "ark:/3"}, {ID: "ark:/1"}, {ID: "ark:/2"}}
	records := []*model.EntityRecord{
		{ID: "ark:/1"}, {ID: "ark:/2"}, {ID: "ark:/3"},
	}

	result := Reconcile(hits, records, slog.Default())

	if len(result) != 3 {
		t.Fatalf("len = %d, ожидались 3", len(result))
	}
	for i, want := range []string{"ark:/3", "ark:/1", "ark:/2"} {
		if result[i].Record.ID != want {
			t.Errorf("позиция %d: %s, ожидался %s", i, result[i].Record.ID, want)
		}
	}
}

// TestReconcile_DropsDriftedHits проверяет, что hit без записи в каталоге
// (дрейф индекс/БД) молча отбрасывается, а не роняет запрос.
func TestReconcile_DropsDriftedHits(t *testing.T) {
	hits := []Hit{{ID: "ark:/1"}, {ID: "ark:/deleted"}}
	records := []*model.EntityRecord{{ID: "ark:/1"}}

	result := Reconcile(hits, records, slog.Default())

	if len(result) != 1 {
		t.Fatalf("len = %d, ожидался 1", len(result))
	}
	if result[0].Record.ID != "ark:/1" {
		t.Errorf("остался %s, ожидался ark:/1", result[0].Record.ID)
	}
}

// TestMergeSearchMeta проверяет слияние метаданных релевантности.
func TestMergeSearchMeta(t *testing.T) {
	doc := map[string]any{"id": "ark:/1"}
	hit := Hit{ID: "ark:/1", Score: 2.5, Highlight: map[string][]string{"name": {"<em>x</em>"}}}

	merged := MergeSearchMeta(doc, hit)

	if merged["searchScore"] != 2.5 {
		t.Errorf("searchScore = %v", merged["searchScore"])
	}
	if _, ok := merged["highlight"]; !ok {
		t.Error("highlight отсутствует")
	}
}

// TestMergeSearchMeta_DoesNotOverwritePipelineFields проверяет, что поля,
// созданные pipeline, не перезаписываются метаданными поиска.
func TestMergeSearchMeta_DoesNotOverwritePipelineFields(t *testing.T) {
	doc := map[string]any{"searchScore": "custom", "highlight": "custom"}
	hit := Hit{Score: 2.5, Highlight: map[string][]string{"name": {"x"}}}

	merged := MergeSearchMeta(doc, hit)

	if merged["searchScore"] != "custom" || merged["highlight"] != "custom" {
		t.Errorf("поля pipeline перезаписаны: %v", merged)
	}
}

// TestMergeSearchMeta_EmptyHighlightOmitted проверяет, что пустая подсветка
// не добавляет поле.
func TestMergeSearchMeta_EmptyHighlightOmitted(t *testing.T) {
	merged := MergeSearchMeta(map[string]any{}, Hit{Score: 1})

	if _, ok := merged["highlight"]; ok {
		t.Error("пустой highlight не должен попадать в документ")
	}
}
