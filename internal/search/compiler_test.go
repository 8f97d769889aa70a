package search

import (
	"reflect"
	"testing"
)

// --- Тесты компиляции запроса ---

// TestCompile_BasicQuery проверяет fuzzy multi_match для basic-поиска.
func TestCompile_BasicQuery(t *testing.T) {
	req := &Request{Query: "архив", SearchType: TypeBasic, Limit: 10, Sort: SortRelevance, Order: "asc"}

	body := Compile(req).Body

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	if len(must) != 1 {
		t.Fatalf("must содержит %d клаузул, ожидалась 1", len(must))
	}

	mm, ok := must[0].(map[string]any)["multi_match"].(map[string]any)
	if !ok {
		t.Fatalf("basic-поиск должен давать multi_match, получено %v", must[0])
	}
	if mm["query"] != "архив" {
		t.Errorf("query = %v, ожидался 'архив'", mm["query"])
	}
	if mm["fuzziness"] != "AUTO" {
		t.Errorf("fuzziness = %v, ожидалась AUTO", mm["fuzziness"])
	}
	if !reflect.DeepEqual(mm["fields"], searchFields) {
		t.Errorf("fields = %v, ожидались %v", mm["fields"], searchFields)
	}
}

// TestCompile_AdvancedQuery проверяет query_string с AND для advanced-поиска.
func TestCompile_AdvancedQuery(t *testing.T) {
	req := &Request{Query: "письмо AND 1944", SearchType: TypeAdvanced, Limit: 10, Sort: SortRelevance, Order: "asc"}

	body := Compile(req).Body

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)

	qs, ok := must[0].(map[string]any)["query_string"].(map[string]any)
	if !ok {
		t.Fatalf("advanced-поиск должен давать query_string, получено %v", must[0])
	}
	if qs["default_operator"] != "AND" {
		t.Errorf("default_operator = %v, ожидался AND", qs["default_operator"])
	}
}

// TestCompile_FiltersDoNotScore проверяет, что фильтры попадают в filter,
// а не в must: они не должны влиять на релевантность.
func TestCompile_FiltersDoNotScore(t *testing.T) {
	req := &Request{
		Query:      "test",
		SearchType: TypeBasic,
		Filters:    map[string][]string{"language": {"ru", "en"}},
		Limit:      10,
		Sort:       SortRelevance,
		Order:      "asc",
	}

	boolQuery := Compile(req).Body["query"].(map[string]any)["bool"].(map[string]any)

	if len(boolQuery["must"].([]any)) != 1 {
		t.Errorf("must должен содержать только полнотекстовую часть")
	}

	filters := boolQuery["filter"].([]any)
	if len(filters) != 1 {
		t.Fatalf("filter содержит %d клаузул, ожидалась 1", len(filters))
	}
	terms := filters[0].(map[string]any)["terms"].(map[string]any)
	if !reflect.DeepEqual(terms["language"], []string{"ru", "en"}) {
		t.Errorf("terms language = %v", terms["language"])
	}
}

// TestCompile_GeoCornerNormalization проверяет нормализацию углов:
// topRight (51.5, 0.1) / bottomLeft (51.4, 0.0) должны дать
// top_left (51.5, 0.0) и bottom_right (51.4, 0.1).
func TestCompile_GeoCornerNormalization(t *testing.T) {
	box := &BoundingBox{
		TopRight:   Corner{Lat: 51.5, Lng: 0.1},
		BottomLeft: Corner{Lat: 51.4, Lng: 0.0},
	}

	filter := geoBoundingBoxFilter(box)
	location := filter["geo_bounding_box"].(map[string]any)["location"].(map[string]any)

	topLeft := location["top_left"].(map[string]any)
	if topLeft["lat"] != 51.5 || topLeft["lon"] != 0.0 {
		t.Errorf("top_left = %v, ожидался {lat: 51.5, lon: 0.0}", topLeft)
	}
	bottomRight := location["bottom_right"].(map[string]any)
	if bottomRight["lat"] != 51.4 || bottomRight["lon"] != 0.1 {
		t.Errorf("bottom_right = %v, ожидался {lat: 51.4, lon: 0.1}", bottomRight)
	}
}

// TestCompile_GeoCornerNormalization_SwappedCorners проверяет, что
// перепутанные местами углы дают ту же диагональ.
func TestCompile_GeoCornerNormalization_SwappedCorners(t *testing.T) {
	box := &BoundingBox{
		TopRight:   Corner{Lat: 51.4, Lng: 0.0},
		BottomLeft: Corner{Lat: 51.5, Lng: 0.1},
	}

	filter := geoBoundingBoxFilter(box)
	location := filter["geo_bounding_box"].(map[string]any)["location"].(map[string]any)

	topLeft := location["top_left"].(map[string]any)
	if topLeft["lat"] != 51.5 || topLeft["lon"] != 0.0 {
		t.Errorf("top_left = %v, углы должны нормализоваться независимо от порядка", topLeft)
	}
}

// TestCompile_FacetsAlwaysRequested проверяет фиксированный набор фасетов
// независимо от фильтров запроса.
func TestCompile_FacetsAlwaysRequested(t *testing.T) {
	req := &Request{Query: "x", SearchType: TypeBasic, Limit: 10, Sort: SortRelevance, Order: "asc"}

	aggs := Compile(req).Body["aggs"].(map[string]any)

	for _, field := range facetFields {
		agg, ok := aggs[field].(map[string]any)
		if !ok {
			t.Fatalf("фасет %s отсутствует в агрегациях", field)
		}
		terms := agg["terms"].(map[string]any)
		if terms["size"] != facetBuckets {
			t.Errorf("фасет %s: size = %v, ожидался %d", field, terms["size"], facetBuckets)
		}
	}

	if _, ok := aggs[geohashAggName]; ok {
		t.Error("geohash-сетка не должна запрашиваться без precision и box")
	}
}

// TestCompile_GeohashGridRequiresBothInputs проверяет условие сетки:
// нужны одновременно точность > 0 и bounding box.
func TestCompile_GeohashGridRequiresBothInputs(t *testing.T) {
	box := &BoundingBox{TopRight: Corner{Lat: 1, Lng: 1}, BottomLeft: Corner{Lat: 0, Lng: 0}}

	cases := []struct {
		name      string
		precision int
		box       *BoundingBox
		want      bool
	}{
		{"точность и box", 5, box, true},
		{"только точность", 5, nil, false},
		{"только box", 0, box, false},
		{"ничего", 0, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &Request{
				Query: "x", SearchType: TypeBasic, Limit: 10, Sort: SortRelevance, Order: "asc",
				GeohashPrecision: tc.precision, BoundingBox: tc.box,
			}
			aggs := Compile(req).Body["aggs"].(map[string]any)
			_, got := aggs[geohashAggName]
			if got != tc.want {
				t.Errorf("наличие geohash-сетки = %v, ожидалось %v", got, tc.want)
			}
		})
	}
}

// TestCompile_SortRelevanceOmitted проверяет, что relevance опускает sort.
func TestCompile_SortRelevanceOmitted(t *testing.T) {
	req := &Request{Query: "x", SearchType: TypeBasic, Limit: 10, Sort: SortRelevance, Order: "asc"}

	if _, ok := Compile(req).Body["sort"]; ok {
		t.Error("relevance-сортировка не должна давать явный sort")
	}
}

// TestCompile_SortNameUsesKeyword проверяет сортировку name по keyword-подполю.
func TestCompile_SortNameUsesKeyword(t *testing.T) {
	req := &Request{Query: "x", SearchType: TypeBasic, Limit: 10, Sort: "name", Order: "desc"}

	sort := Compile(req).Body["sort"].([]any)
	spec := sort[0].(map[string]any)
	clause, ok := spec["name.keyword"].(map[string]any)
	if !ok {
		t.Fatalf("сортировка name должна идти по name.keyword, получено %v", spec)
	}
	if clause["order"] != "desc" {
		t.Errorf("order = %v, ожидался desc", clause["order"])
	}
}

// TestCompile_Pagination проверяет проброс from/size и track_total_hits.
func TestCompile_Pagination(t *testing.T) {
	req := &Request{Query: "x", SearchType: TypeBasic, Limit: 25, Offset: 50, Sort: SortRelevance, Order: "asc"}

	body := Compile(req).Body
	if body["from"] != 50 || body["size"] != 25 {
		t.Errorf("from/size = %v/%v, ожидались 50/25", body["from"], body["size"])
	}
	if body["track_total_hits"] != true {
		t.Error("track_total_hits должен быть true")
	}
}
