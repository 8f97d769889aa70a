package search

import "testing"

// TestNormalize_Defaults проверяет дефолты пустого запроса.
func TestNormalize_Defaults(t *testing.T) {
	req := &Request{}
	req.Normalize()

	if req.SearchType != TypeBasic {
		t.Errorf("SearchType = %q, ожидался basic", req.SearchType)
	}
	if req.Limit != 10 {
		t.Errorf("Limit = %d, ожидался 10", req.Limit)
	}
	if req.Sort != SortRelevance {
		t.Errorf("Sort = %q, ожидался relevance", req.Sort)
	}
	if req.Order != "asc" {
		t.Errorf("Order = %q, ожидался asc", req.Order)
	}
}

// TestNormalize_KeepsExplicitValues проверяет, что заданные значения не трогаются.
func TestNormalize_KeepsExplicitValues(t *testing.T) {
	req := &Request{SearchType: TypeAdvanced, Limit: 50, Sort: "name", Order: "desc"}
	req.Normalize()

	if req.SearchType != TypeAdvanced || req.Limit != 50 || req.Sort != "name" || req.Order != "desc" {
		t.Errorf("Normalize изменил явно заданные значения: %+v", req)
	}
}

// TestValidate проверяет отклонение значений вне допустимых диапазонов.
func TestValidate(t *testing.T) {
	valid := func() *Request {
		return &Request{SearchType: TypeBasic, Limit: 10, Sort: SortRelevance, Order: "asc"}
	}

	cases := []struct {
		name    string
		mutate  func(*Request)
		wantErr bool
	}{
		{"валидный запрос", func(_ *Request) {}, false},
		{"неизвестный searchType", func(r *Request) { r.SearchType = "fuzzy" }, true},
		{"limit ноль", func(r *Request) { r.Limit = 0 }, true},
		{"limit выше предела", func(r *Request) { r.Limit = MaxLimit + 1 }, true},
		{"limit на границе", func(r *Request) { r.Limit = MaxLimit }, false},
		{"отрицательный offset", func(r *Request) { r.Offset = -1 }, true},
		{"geohash выше предела", func(r *Request) { r.GeohashPrecision = 13 }, true},
		{"geohash на границе", func(r *Request) { r.GeohashPrecision = MaxGeohashPrecision }, false},
		{"неизвестный sort", func(r *Request) { r.Sort = "size" }, true},
		{"sort relevance", func(r *Request) { r.Sort = SortRelevance }, false},
		{"неизвестный order", func(r *Request) { r.Order = "up" }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(req)
			err := req.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, ожидалась ошибка: %v", err, tc.wantErr)
			}
		})
	}
}
