// ratelimit.go — ограничение частоты запросов (token bucket).
// Лимит общий на инстанс: защита коллабораторов (PostgreSQL,
// Elasticsearch) от лавины запросов, а не квотирование клиентов.
package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	apierrors "github.com/arkstore/catalog-module/internal/api/errors"
)

// RateLimit возвращает middleware с token bucket лимитером.
// rps — устоявшаяся частота, burst — допустимый всплеск.
// rps <= 0 отключает лимитер.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				apierrors.RateLimitExceeded(w, "Превышен лимит запросов, повторите позже")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
