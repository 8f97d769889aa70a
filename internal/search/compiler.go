package search

// compiler.go — построение тела запроса Elasticsearch из Request.
// Тело собирается как map[string]any и сериализуется вызывающим кодом.

// Фиксированный набор фасетных агрегаций: поле индекса → имя агрегации.
// Запрашивается всегда, независимо от наличия фильтров.
const facetBuckets = 20

// facetFields — поля фасетов в порядке, безразличном движку.
var facetFields = []string{"language", "mediaType", "communicationMode", "entityType"}

// Имя geohash-агрегации в ответе движка.
const geohashAggName = "geohashGrid"

// Compiled — результат компиляции: готовое тело _search.
type Compiled struct {
	// Body — полное тело запроса (query + aggs + sort + from/size).
	Body map[string]any
}

// Compile строит тело Elasticsearch-запроса из нормализованного Request.
// Запрос должен быть предварительно провалидирован.
func Compile(req *Request) *Compiled {
	body := map[string]any{
		"query":            compileQuery(req),
		"aggs":             compileAggregations(req),
		"from":             req.Offset,
		"size":             req.Limit,
		"track_total_hits": true,
		"highlight": map[string]any{
			"fields": map[string]any{
				"name":        map[string]any{},
				"description": map[string]any{},
			},
		},
	}
	if sort := compileSort(req); sort != nil {
		body["sort"] = sort
	}
	return &Compiled{Body: body}
}

// compileQuery строит главный запрос: полнотекстовая часть в must
// (влияет на score), фильтры в filter (score не трогают — инвариант
// корректности, а не оптимизация).
func compileQuery(req *Request) map[string]any {
	boolQuery := map[string]any{
		"must": []any{compileTextQuery(req)},
	}

	var filters []any
	for field, values := range req.Filters {
		filters = append(filters, map[string]any{
			"terms": map[string]any{field: values},
		})
	}
	if req.BoundingBox != nil {
		filters = append(filters, geoBoundingBoxFilter(req.BoundingBox))
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	return map[string]any{"bool": boolQuery}
}

// compileTextQuery строит полнотекстовую часть запроса.
// basic — fuzzy multi_match, advanced — query_string с implicit AND.
func compileTextQuery(req *Request) map[string]any {
	if req.SearchType == TypeAdvanced {
		return map[string]any{
			"query_string": map[string]any{
				"query":            req.Query,
				"fields":           searchFields,
				"default_operator": "AND",
			},
		}
	}
	return map[string]any{
		"multi_match": map[string]any{
			"query":     req.Query,
			"fields":    searchFields,
			"fuzziness": "AUTO",
		},
	}
}

// geoBoundingBoxFilter строит geo_bounding_box с нормализацией углов:
// движок ожидает диагональ top_left/bottom_right, вызывающий же волен
// пометить углами «верхний правый» и «нижний левый» любую диагональ.
// top_left = (max широта, min долгота), bottom_right = (min широта,
// max долгота).
func geoBoundingBoxFilter(box *BoundingBox) map[string]any {
	topLat, bottomLat := box.TopRight.Lat, box.BottomLeft.Lat
	if bottomLat > topLat {
		topLat, bottomLat = bottomLat, topLat
	}
	leftLng, rightLng := box.BottomLeft.Lng, box.TopRight.Lng
	if leftLng > rightLng {
		leftLng, rightLng = rightLng, leftLng
	}

	return map[string]any{
		"geo_bounding_box": map[string]any{
			"location": map[string]any{
				"top_left": map[string]any{
					"lat": topLat,
					"lon": leftLng,
				},
				"bottom_right": map[string]any{
					"lat": bottomLat,
					"lon": rightLng,
				},
			},
		},
	}
}

// compileAggregations строит набор агрегаций: фиксированные фасеты всегда,
// geohash-сетка — только при одновременном наличии точности и bounding box
// (с тем же нормализованным прямоугольником, что и в фильтре запроса).
func compileAggregations(req *Request) map[string]any {
	aggs := make(map[string]any, len(facetFields)+1)
	for _, field := range facetFields {
		aggs[field] = map[string]any{
			"terms": map[string]any{
				"field": field,
				"size":  facetBuckets,
			},
		}
	}

	if req.GeohashPrecision > 0 && req.BoundingBox != nil {
		aggs[geohashAggName] = map[string]any{
			"filter": geoBoundingBoxFilter(req.BoundingBox),
			"aggs": map[string]any{
				"grid": map[string]any{
					"geohash_grid": map[string]any{
						"field":     "location",
						"precision": req.GeohashPrecision,
					},
				},
			},
		}
	}
	return aggs
}

// compileSort строит спецификацию сортировки.
// relevance — nil: явный sort опускается, движок сортирует по score.
func compileSort(req *Request) []any {
	if req.Sort == SortRelevance {
		return nil
	}
	field := sortFields[req.Sort]
	return []any{
		map[string]any{
			field: map[string]any{"order": req.Order},
		},
	}
}
