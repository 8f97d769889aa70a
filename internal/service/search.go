// search.go — сервис полнотекстового поиска по каталогу.
// Координирует компилятор запросов, поисковый движок, сверку с
// системой записи и pipeline трансформации.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arkstore/catalog-module/internal/domain/model"
	"github.com/arkstore/catalog-module/internal/repository"
	"github.com/arkstore/catalog-module/internal/resolver"
	"github.com/arkstore/catalog-module/internal/search"
	"github.com/arkstore/catalog-module/internal/transform"
)

// Prometheus-метрики поиска.
var (
	searchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_search_total",
		Help: "Общее количество поисковых запросов.",
	})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cm_search_duration_seconds",
		Help:    "Длительность поисковых запросов (включая движок и БД).",
		Buckets: prometheus.DefBuckets,
	})
	searchDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_search_dropped_hits_total",
		Help: "Hits индекса без записи в каталоге (дрейф индекс/БД).",
	})
)

// SearchEngine — поисковый движок в объёме, нужном сервису.
type SearchEngine interface {
	Search(ctx context.Context, body []byte) ([]byte, error)
}

// SearchResult — результат поиска для выдачи наружу.
type SearchResult struct {
	// Total — общее количество совпадений в индексе
	Total int64 `json:"total"`
	// SearchTime — длительность запроса в миллисекундах
	SearchTime int64 `json:"searchTime"`
	// Entities — документы страницы с метаданными релевантности
	Entities []transform.Document `json:"entities"`
	// Facets — фасетные агрегации (опускаются при пустом ответе движка)
	Facets map[string][]search.FacetBucket `json:"facets,omitempty"`
	// GeohashGrid — geohash-ячейки (опускается, если не запрашивались)
	GeohashGrid map[string]int64 `json:"geohashGrid,omitempty"`
}

// SearchService — сервис поиска по каталогу.
type SearchService struct {
	engine     SearchEngine
	entityRepo repository.EntityRepository
	resolver   *resolver.Resolver
	pipeline   *transform.EntityPipeline
	logger     *slog.Logger
}

// NewSearchService создаёт сервис поиска.
func NewSearchService(
	engine SearchEngine,
	entityRepo repository.EntityRepository,
	res *resolver.Resolver,
	pipeline *transform.EntityPipeline,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		engine:     engine,
		entityRepo: entityRepo,
		resolver:   res,
		pipeline:   pipeline,
		logger:     logger.With(slog.String("component", "search_service")),
	}
}

// Search выполняет полный цикл поиска: компиляция запроса, обращение к
// движку, сверка идентификаторов с системой записи, трансформация
// найденных записей и слияние метаданных релевантности.
// Запрос должен быть предварительно нормализован и провалидирован.
func (s *SearchService) Search(ctx context.Context, req *search.Request, rc *transform.RequestContext) (*SearchResult, error) {
	start := time.Now()
	searchTotal.Inc()

	body, err := json.Marshal(search.Compile(req).Body)
	if err != nil {
		return nil, fmt.Errorf("сериализация поискового запроса: %w", err)
	}

	raw, err := s.engine.Search(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("запрос к поисковому движку: %w", err)
	}

	parsed, err := search.ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("разбор ответа движка: %w", err)
	}

	docs, err := s.materialize(ctx, parsed.Hits, rc)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	searchDuration.Observe(duration.Seconds())

	s.logger.Debug("Поиск выполнен",
		slog.Int64("total", parsed.Total),
		slog.Int("returned", len(docs)),
		slog.Duration("duration", duration),
	)

	return &SearchResult{
		Total:       parsed.Total,
		SearchTime:  duration.Milliseconds(),
		Entities:    docs,
		Facets:      parsed.Facets,
		GeohashGrid: parsed.GeohashGrid,
	}, nil
}

// materialize добирает канонические записи для hits индекса и прогоняет
// их через pipeline, сохраняя порядок релевантности движка.
func (s *SearchService) materialize(ctx context.Context, hits []search.Hit, rc *transform.RequestContext) ([]transform.Document, error) {
	if len(hits) == 0 {
		return []transform.Document{}, nil
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}

	records, err := s.entityRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("получение записей каталога: %w", err)
	}

	reconciled := search.Reconcile(hits, records, s.logger)
	if dropped := len(hits) - len(reconciled); dropped > 0 {
		searchDropped.Add(float64(dropped))
	}

	ordered := make([]*model.EntityRecord, 0, len(reconciled))
	for _, rh := range reconciled {
		ordered = append(ordered, rh.Record)
	}

	refs, err := s.resolver.ResolveEntities(ctx, ordered)
	if err != nil {
		return nil, fmt.Errorf("разрешение ссылок: %w", err)
	}

	docs, err := s.pipeline.RunAll(ctx, ordered, refs, rc)
	if err != nil {
		return nil, fmt.Errorf("трансформация результатов поиска: %w", err)
	}

	for i := range docs {
		docs[i] = search.MergeSearchMeta(docs[i], reconciled[i].Hit)
	}
	return docs, nil
}
