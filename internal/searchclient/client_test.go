package searchclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// engineServer поднимает тестовый сервер, который go-elasticsearch
// принимает за настоящий движок (заголовок X-Elastic-Product).
func engineServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewTransportTimeout(t *testing.T) {
	transport := newTransport(5 * time.Second)
	if transport.ResponseHeaderTimeout != 5*time.Second {
		t.Errorf("таймаут из конфигурации не применён: %v", transport.ResponseHeaderTimeout)
	}

	transport = newTransport(0)
	if transport.ResponseHeaderTimeout != 0 {
		t.Errorf("нулевой таймаут должен оставлять транспорт без лимита: %v", transport.ResponseHeaderTimeout)
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{400, ErrBadQuery},
		{422, ErrBadQuery},
		{500, ErrUnavailable},
		{503, ErrUnavailable},
	}
	for _, tc := range cases {
		if got := classifyStatus(tc.status); !errors.Is(got, tc.want) {
			t.Errorf("статус %d: ожидалась %v, получена %v", tc.status, tc.want, got)
		}
	}
}

func TestSearchBadQuery(t *testing.T) {
	srv := engineServer(t, http.StatusBadRequest,
		`{"error":{"type":"parsing_exception","reason":"Cannot parse"}}`)

	client, err := New(Config{URL: srv.URL, Index: "catalog", Timeout: time.Second}, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Search(context.Background(), []byte(`{"query":{"query_string":{"query":"(("}}}`))
	if !errors.Is(err, ErrBadQuery) {
		t.Fatalf("4xx движка должен отображаться в ErrBadQuery: %v", err)
	}
}

func TestSearchEngineDown(t *testing.T) {
	srv := engineServer(t, http.StatusServiceUnavailable, `{}`)

	client, err := New(Config{URL: srv.URL, Index: "catalog"}, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Search(context.Background(), []byte(`{"query":{"match_all":{}}}`))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("5xx движка должен отображаться в ErrUnavailable: %v", err)
	}
}

func TestSearchOK(t *testing.T) {
	srv := engineServer(t, http.StatusOK, `{"hits":{"total":{"value":0},"hits":[]}}`)

	client, err := New(Config{URL: srv.URL, Index: "catalog"}, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw, err := client.Search(context.Background(), []byte(`{"query":{"match_all":{}}}`))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(raw) == 0 {
		t.Error("ожидалось сырое тело ответа")
	}
}
