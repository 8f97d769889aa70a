package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testMWLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "/health/live"},
		{"/health/ready", "/health/ready"},
		{"/metrics", "/metrics"},
		{"/api/v1/search", "/api/v1/search"},
		{"/api/v1/entities", "/api/v1/entities"},
		{"/api/v1/files", "/api/v1/files"},
		// Percent-encoded URI в пути схлопывается в {id}.
		{"/api/v1/entity/arcp%3A%2F%2Fname%2Ccorpus", "/api/v1/entity/{id}"},
		{"/api/v1/entity/arcp%3A%2F%2Fname%2Ccorpus/rocrate", "/api/v1/entity/{id}/rocrate"},
		{"/api/v1/file/arcp%3A%2F%2Fname%2Ccorpus%2Faudio.wav", "/api/v1/file/{id}"},
		{"/unknown", "/unknown"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.path, got, tt.want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// rps низкий, burst 2: третий мгновенный запрос упирается в лимит.
	handler := RateLimit(0.001, 2)(next)

	statuses := make([]int, 3)
	for i := range statuses {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))
		statuses[i] = rec.Code
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("запросы в пределах burst должны проходить: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("запрос сверх burst должен получать 429: %v", statuses)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := RateLimit(0, 0)(next)

	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("при rps=0 лимитер отключён, получен %d", rec.Code)
		}
	}
}

func TestRequestIDPropagation(t *testing.T) {
	var gotHeader string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(requestIDHeader)
		w.WriteHeader(http.StatusOK)
	})

	handler := RequestLogger(testMWLogger())(next)

	t.Run("входящий идентификатор сохраняется", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/entities", nil)
		r.Header.Set(requestIDHeader, "upstream-42")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, r)

		if gotHeader != "upstream-42" {
			t.Errorf("входящий X-Request-Id должен сохраняться: %q", gotHeader)
		}
		if rec.Header().Get(requestIDHeader) != "upstream-42" {
			t.Errorf("идентификатор должен возвращаться в ответе: %q", rec.Header().Get(requestIDHeader))
		}
	})

	t.Run("идентификатор генерируется при отсутствии", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entities", nil))

		if rec.Header().Get(requestIDHeader) == "" {
			t.Error("при отсутствии X-Request-Id должен генерироваться новый")
		}
	})
}
