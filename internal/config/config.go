// Пакет config — загрузка и валидация конфигурации Catalog Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды хранения контента.
const (
	FileBackendDisk = "disk"
	FileBackendS3   = "s3"
)

// Config содержит все параметры конфигурации Catalog Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// --- Elasticsearch ---

	// ESURL — адрес узла движка
	ESURL string
	// ESIndex — имя индекса каталога
	ESIndex string
	// ESUsername, ESPassword — basic auth (пустые — без авторизации)
	ESUsername string
	ESPassword string
	// ESCACertPath — CA-сертификат для TLS
	ESCACertPath string
	// ESTimeout — таймаут запросов к движку
	ESTimeout time.Duration

	// --- JWT / Keycloak ---

	// JWKSURL — JWKS endpoint Keycloak. Пустая строка отключает
	// JWT middleware: весь каталог доступен только анонимно.
	JWKSURL string
	// JWKSCACertPath — CA-сертификат для TLS к Keycloak
	JWKSCACertPath string
	// JWTIssuer — ожидаемый issuer (пустой — не проверяется)
	JWTIssuer string
	// JWKSClientTimeout — таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// JWKSRefreshInterval — интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// JWTLeeway — допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Доступ ---

	// PublicLicenses — URI лицензий, открытых без авторизации
	PublicLicenses []string
	// AuthorizationURL — куда направлять клиента за доступом к закрытому контенту
	AuthorizationURL string

	// --- Контент ---

	// FileBackend — бэкенд хранения контента (disk, s3)
	FileBackend string
	// DiskRoot — корневой каталог контента (disk)
	DiskRoot string
	// DiskAccelPrefix — префикс X-Accel-Redirect (пустой — отдача процессом)
	DiskAccelPrefix string
	// S3Endpoint — endpoint S3-совместимого хранилища (пустой — AWS)
	S3Endpoint string
	// S3Region — регион
	S3Region string
	// S3Bucket — имя bucket
	S3Bucket string
	// S3AccessKey, S3SecretKey — статические credentials
	S3AccessKey string
	S3SecretKey string
	// S3PresignExpiry — время жизни presigned URL
	S3PresignExpiry time.Duration
	// S3UsePathStyle — path-style адресация (MinIO)
	S3UsePathStyle bool

	// --- Кэш записей файлов ---

	// CacheSize — ёмкость LRU-кэша
	CacheSize int
	// CacheTTL — время жизни записи в кэше
	CacheTTL time.Duration

	// --- Rate limiting ---

	// RateLimitRPS — устоявшаяся частота запросов (0 — отключено)
	RateLimitRPS float64
	// RateLimitBurst — допустимый всплеск
	RateLimitBurst int

	// --- Dependency health (topologymetrics) ---

	// DephealthEnabled — включить мониторинг зависимостей
	DephealthEnabled bool
	// DephealthGroup — имя группы в метриках
	DephealthGroup string
	// DephealthCheckInterval — интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// DephealthIsEntry — лейбл isentry=yes для всех зависимостей
	DephealthIsEntry bool

	// --- Отладка ---

	// DevErrors — отдавать тексты внутренних ошибок клиенту (только dev)
	DevErrors bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CM_PORT — порт HTTP-сервера (по умолчанию 8041)
	cfg.Port, err = getEnvInt("CM_PORT", 8041)
	if err != nil {
		return nil, fmt.Errorf("CM_PORT: %w", err)
	}

	// CM_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("CM_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("CM_LOG_LEVEL: %w", err)
	}

	// CM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("CM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_READ_TIMEOUT: %w", err)
	}

	cfg.HTTPWriteTimeout, err = getEnvDuration("CM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("CM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("CM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost = getEnvDefault("CM_DB_HOST", "localhost")

	cfg.DBPort, err = getEnvInt("CM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CM_DB_PORT: %w", err)
	}

	cfg.DBUser, err = getEnvRequired("CM_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("CM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBName, err = getEnvRequired("CM_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("CM_DB_SSLMODE", "disable")

	// --- Elasticsearch ---

	cfg.ESURL, err = getEnvRequired("CM_ES_URL")
	if err != nil {
		return nil, err
	}

	cfg.ESIndex = getEnvDefault("CM_ES_INDEX", "catalog")
	cfg.ESUsername = os.Getenv("CM_ES_USERNAME")
	cfg.ESPassword = os.Getenv("CM_ES_PASSWORD")
	cfg.ESCACertPath = os.Getenv("CM_ES_CA_CERT_PATH")

	cfg.ESTimeout, err = getEnvDuration("CM_ES_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_ES_TIMEOUT: %w", err)
	}

	// --- JWT / Keycloak ---

	cfg.JWKSURL = os.Getenv("CM_JWKS_URL")
	cfg.JWKSCACertPath = os.Getenv("CM_JWKS_CA_CERT_PATH")
	cfg.JWTIssuer = os.Getenv("CM_JWT_ISSUER")

	cfg.JWKSClientTimeout, err = getEnvDuration("CM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("CM_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.JWTLeeway, err = getEnvDuration("CM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_JWT_LEEWAY: %w", err)
	}

	// --- Доступ ---

	// CM_PUBLIC_LICENSES — URI публичных лицензий через запятую
	cfg.PublicLicenses = splitList(os.Getenv("CM_PUBLIC_LICENSES"))
	cfg.AuthorizationURL = os.Getenv("CM_AUTHORIZATION_URL")

	// --- Контент ---

	cfg.FileBackend = getEnvDefault("CM_FILE_BACKEND", FileBackendDisk)
	if cfg.FileBackend != FileBackendDisk && cfg.FileBackend != FileBackendS3 {
		return nil, fmt.Errorf("CM_FILE_BACKEND: недопустимый бэкенд %q, допустимые: disk, s3", cfg.FileBackend)
	}

	cfg.DiskRoot = getEnvDefault("CM_DISK_ROOT", "/data/content")
	cfg.DiskAccelPrefix = os.Getenv("CM_DISK_ACCEL_PREFIX")

	cfg.S3Endpoint = os.Getenv("CM_S3_ENDPOINT")
	cfg.S3Region = getEnvDefault("CM_S3_REGION", "us-east-1")
	cfg.S3Bucket = os.Getenv("CM_S3_BUCKET")
	cfg.S3AccessKey = os.Getenv("CM_S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("CM_S3_SECRET_KEY")

	cfg.S3PresignExpiry, err = getEnvDuration("CM_S3_PRESIGN_EXPIRY", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_S3_PRESIGN_EXPIRY: %w", err)
	}

	cfg.S3UsePathStyle, err = getEnvBool("CM_S3_USE_PATH_STYLE", false)
	if err != nil {
		return nil, fmt.Errorf("CM_S3_USE_PATH_STYLE: %w", err)
	}

	if cfg.FileBackend == FileBackendS3 && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("CM_S3_BUCKET: обязателен при CM_FILE_BACKEND=s3")
	}

	// --- Кэш записей файлов ---

	cfg.CacheSize, err = getEnvInt("CM_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("CM_CACHE_SIZE: %w", err)
	}

	cfg.CacheTTL, err = getEnvDuration("CM_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_CACHE_TTL: %w", err)
	}

	// --- Rate limiting ---

	cfg.RateLimitRPS, err = getEnvFloat("CM_RATE_LIMIT_RPS", 0)
	if err != nil {
		return nil, fmt.Errorf("CM_RATE_LIMIT_RPS: %w", err)
	}

	cfg.RateLimitBurst, err = getEnvInt("CM_RATE_LIMIT_BURST", 50)
	if err != nil {
		return nil, fmt.Errorf("CM_RATE_LIMIT_BURST: %w", err)
	}

	// --- Dependency health ---

	cfg.DephealthEnabled, err = getEnvBool("CM_DEPHEALTH_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("CM_DEPHEALTH_ENABLED: %w", err)
	}

	cfg.DephealthGroup = getEnvDefault("CM_DEPHEALTH_GROUP", "arkstore")

	cfg.DephealthCheckInterval, err = getEnvDuration("CM_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	// --- Отладка ---

	cfg.DevErrors, err = getEnvBool("CM_DEV_ERRORS", false)
	if err != nil {
		return nil, fmt.Errorf("CM_DEV_ERRORS: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает DSN подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvFloat возвращает вещественное значение переменной окружения или значение по умолчанию.
func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное число: %q", val)
	}
	return f, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// splitList разбирает список значений через запятую, отбрасывая пустые.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
