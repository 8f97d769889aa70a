package service

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arkstore/catalog-module/internal/domain/model"
)

// Prometheus-метрики кеша записей файлов.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_file_cache_hits_total",
		Help: "Попадания в кеш записей файлов.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_file_cache_misses_total",
		Help: "Промахи кеша записей файлов.",
	})
)

// FileRecordCache — LRU-кеш записей файлов с TTL для горячего пути
// выдачи контента. Позволяет не ходить в БД на каждый GET/HEAD
// одного и того же файла.
type FileRecordCache struct {
	cache *lru.LRU[string, *model.FileRecord]
}

// NewFileRecordCache создаёт кеш на size записей с временем жизни ttl.
func NewFileRecordCache(size int, ttl time.Duration) *FileRecordCache {
	return &FileRecordCache{
		cache: lru.NewLRU[string, *model.FileRecord](size, nil, ttl),
	}
}

// Get возвращает запись по идентификатору файла, если она ещё жива.
func (c *FileRecordCache) Get(id string) (*model.FileRecord, bool) {
	record, ok := c.cache.Get(id)
	if ok {
		cacheHits.Inc()
	} else {
		cacheMisses.Inc()
	}
	return record, ok
}

// Put сохраняет запись в кеш.
func (c *FileRecordCache) Put(id string, record *model.FileRecord) {
	c.cache.Add(id, record)
}
