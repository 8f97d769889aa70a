// Пакет searchclient — клиент Elasticsearch для Catalog Module.
// Тонкая обёртка над go-elasticsearch: выполнение _search с сырым JSON-телом
// и ping для readiness. Поддерживает TLS с кастомным CA (CM_ES_CA_CERT_PATH).
package searchclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
)

var (
	// ErrUnavailable — движок недоступен или вернул 5xx.
	ErrUnavailable = errors.New("поисковый движок недоступен")
	// ErrBadQuery — движок отклонил запрос (4xx): синтаксис
	// query_string проверяется только на стороне движка.
	ErrBadQuery = errors.New("движок отклонил поисковый запрос")
)

// Client — клиент поискового движка.
type Client struct {
	es     *elasticsearch.Client
	index  string
	logger *slog.Logger
}

// Config — параметры подключения к Elasticsearch.
type Config struct {
	// URL — адрес узла движка
	URL string
	// Index — имя индекса каталога
	Index string
	// Username, Password — basic auth (пустые строки — без авторизации)
	Username string
	Password string
	// CACertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул)
	CACertPath string
	// Timeout — таймаут HTTP-запросов к движку
	Timeout time.Duration
}

// New создаёт клиент движка.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	transport := newTransport(cfg.Timeout)

	if cfg.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата движка: %w", err)
		}
		transport.TLSClientConfig = tlsConfig
		logger.Info("CA-сертификат движка добавлен в пул доверия",
			slog.String("ca_cert", cfg.CACertPath),
		)
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("создание клиента движка: %w", err)
	}

	return &Client{
		es:     es,
		index:  cfg.Index,
		logger: logger.With(slog.String("component", "search_client")),
	}, nil
}

// Search выполняет _search по индексу каталога с сырым JSON-телом
// и возвращает сырое JSON-тело ответа.
func (c *Client) Search(ctx context.Context, body []byte) ([]byte, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение ответа движка: %w", err)
	}

	if res.IsError() {
		c.logger.Error("Поисковый движок вернул ошибку",
			slog.Int("status", res.StatusCode),
			slog.String("body", truncate(raw, 512)),
		)
		return nil, fmt.Errorf("%w: статус %d", classifyStatus(res.StatusCode), res.StatusCode)
	}
	return raw, nil
}

// newTransport строит HTTP-транспорт клиента движка.
// timeout ограничивает ожидание заголовков ответа; ноль — без лимита.
func newTransport(timeout time.Duration) *http.Transport {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
	}
	if timeout > 0 {
		transport.ResponseHeaderTimeout = timeout
	}
	return transport
}

// classifyStatus разделяет ошибки движка: 4xx — проблема запроса
// (ErrBadQuery), остальное — проблема движка (ErrUnavailable).
func classifyStatus(status int) error {
	if status >= 400 && status < 500 {
		return ErrBadQuery
	}
	return ErrUnavailable
}

// Ping проверяет доступность движка.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping движка: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ping движка: статус %d", res.StatusCode)
	}
	return nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// truncate обрезает тело ответа для лога.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// --- ReadinessChecker для health endpoint ---

// ReadinessChecker — проверка готовности движка.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	client *Client
}

// NewReadinessChecker создаёт проверку готовности движка.
func NewReadinessChecker(client *Client) *ReadinessChecker {
	return &ReadinessChecker{client: client}
}

// CheckReady проверяет движок через ping.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("поисковый движок недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
