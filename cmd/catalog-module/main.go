// Точка входа Catalog Module — публичный каталог архива.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт клиент поискового движка и backend отдачи контента,
// собирает pipeline трансформации и сервисный слой,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/arkstore/catalog-module/internal/api/contract"
	"github.com/arkstore/catalog-module/internal/api/handlers"
	"github.com/arkstore/catalog-module/internal/api/middleware"
	"github.com/arkstore/catalog-module/internal/config"
	"github.com/arkstore/catalog-module/internal/contenthandler"
	"github.com/arkstore/catalog-module/internal/database"
	"github.com/arkstore/catalog-module/internal/delivery"
	"github.com/arkstore/catalog-module/internal/repository"
	"github.com/arkstore/catalog-module/internal/resolver"
	"github.com/arkstore/catalog-module/internal/searchclient"
	"github.com/arkstore/catalog-module/internal/server"
	"github.com/arkstore/catalog-module/internal/service"
	"github.com/arkstore/catalog-module/internal/transform"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Catalog Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("CM_DEPHEALTH_GROUP") == "" {
		logger.Warn("CM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент поискового движка
	esClient, err := searchclient.New(searchclient.Config{
		URL:        cfg.ESURL,
		Index:      cfg.ESIndex,
		Username:   cfg.ESUsername,
		Password:   cfg.ESPassword,
		CACertPath: cfg.ESCACertPath,
		Timeout:    cfg.ESTimeout,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента поискового движка", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент поискового движка создан",
		slog.String("url", cfg.ESURL),
		slog.String("index", cfg.ESIndex),
	)

	// 6. Repositories и resolver ссылок
	entityRepo := repository.NewEntityRepository(pool)
	fileRepo := repository.NewFileRepository(pool)
	refResolver := resolver.New(entityRepo, logger)

	// 7. Pipeline трансформации: base → access → extras
	accessPolicy := service.NewAccessPolicy(cfg.PublicLicenses, cfg.AuthorizationURL)

	entityPipeline, err := transform.NewEntityPipeline(accessPolicy.EntityAccess())
	if err != nil {
		logger.Error("Ошибка сборки pipeline сущностей", slog.String("error", err.Error()))
		os.Exit(1)
	}
	filePipeline, err := transform.NewFilePipeline(accessPolicy.FileAccess())
	if err != nil {
		logger.Error("Ошибка сборки pipeline файлов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Backend отдачи контента
	fileHandler, err := contenthandler.NewFileHandler(ctx, contenthandler.FileBackendConfig{
		Backend:         cfg.FileBackend,
		Root:            cfg.DiskRoot,
		AccelPrefix:     cfg.DiskAccelPrefix,
		S3Endpoint:      cfg.S3Endpoint,
		S3Region:        cfg.S3Region,
		S3Bucket:        cfg.S3Bucket,
		S3AccessKey:     cfg.S3AccessKey,
		S3SecretKey:     cfg.S3SecretKey,
		S3PresignExpiry: cfg.S3PresignExpiry,
		S3UsePathStyle:  cfg.S3UsePathStyle,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания backend отдачи файлов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Backend отдачи контента создан", slog.String("backend", cfg.FileBackend))

	crateHandler := contenthandler.NewCrateHandler(fileRepo, logger)

	// 9. Сервисный слой
	recordCache := service.NewFileRecordCache(cfg.CacheSize, cfg.CacheTTL)
	entitySvc := service.NewEntityService(entityRepo, refResolver, entityPipeline, logger)
	fileSvc := service.NewFileService(fileRepo, refResolver, filePipeline, logger)
	searchSvc := service.NewSearchService(esClient, entityRepo, refResolver, entityPipeline, logger)
	contentSvc := service.NewContentService(fileRepo, entityRepo, recordCache, fileHandler, crateHandler, accessPolicy, logger)

	// 10. Readiness checkers (PostgreSQL + поисковый движок;
	// Keycloak — только при включённой авторизации)
	pgChecker := database.NewReadinessChecker(pool)
	esChecker := searchclient.NewReadinessChecker(esClient)

	var kcChecker handlers.ReadinessChecker
	if cfg.JWKSURL != "" {
		checker, kcErr := middleware.NewKeycloakReadinessChecker(cfg.JWKSURL, cfg.JWKSCACertPath, cfg.JWKSClientTimeout)
		if kcErr != nil {
			logger.Error("Ошибка создания проверки Keycloak", slog.String("error", kcErr.Error()))
			os.Exit(1)
		}
		kcChecker = checker
	}

	healthHandler := handlers.NewHealthHandler(pgChecker, esChecker, kcChecker)

	// 11. API handler
	negotiator := delivery.NewNegotiator(logger)
	apiHandler := handlers.NewAPIHandler(
		entitySvc,
		fileSvc,
		searchSvc,
		contentSvc,
		negotiator,
		healthHandler,
		cfg.DevErrors,
		logger,
	)

	// 12. Middleware: глобальные (логирование, метрики) и API-группа
	// (rate limit, JWT, валидация по OpenAPI контракту)
	globalMiddlewares := []func(http.Handler) http.Handler{
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
	}

	apiMiddlewares := []func(http.Handler) http.Handler{
		middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}

	if cfg.JWKSURL != "" {
		jwtAuth, jwtErr := middleware.NewJWTAuth(
			cfg.JWKSURL,
			cfg.JWKSCACertPath,
			cfg.JWTIssuer,
			cfg.JWKSClientTimeout,
			cfg.JWKSRefreshInterval,
			cfg.JWTLeeway,
			logger,
		)
		if jwtErr != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", jwtErr.Error()))
			os.Exit(1)
		}
		defer jwtAuth.Close()
		apiMiddlewares = append(apiMiddlewares, jwtAuth.Middleware())
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Warn("CM_JWKS_URL не задан, каталог работает только с анонимным доступом")
	}

	validator, err := middleware.NewOpenAPIValidator(contract.Spec(), logger)
	if err != nil {
		logger.Error("Ошибка создания OpenAPI валидатора", slog.String("error", err.Error()))
		os.Exit(1)
	}
	apiMiddlewares = append(apiMiddlewares, validator.Middleware())

	// 13. topologymetrics — мониторинг зависимостей (PostgreSQL + Elasticsearch)
	var dephealthSvc *service.DephealthService
	if cfg.DephealthEnabled {
		var dephealthErr error
		dephealthSvc, dephealthErr = service.NewDephealthService(
			"catalog-module",
			cfg.DephealthGroup,
			pgDB,
			cfg.DatabaseDSN(),
			cfg.ESURL,
			cfg.DephealthCheckInterval,
			cfg.DephealthIsEntry,
			logger,
		)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dephealthErr.Error()),
			)
		} else {
			if startErr := dephealthSvc.Start(ctx); startErr != nil {
				logger.Warn("Ошибка запуска topologymetrics",
					slog.String("error", startErr.Error()),
				)
			} else {
				logger.Info("topologymetrics запущен",
					slog.String("group", cfg.DephealthGroup),
					slog.String("check_interval", cfg.DephealthCheckInterval.String()),
				)
			}
		}
	}

	// 14. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, globalMiddlewares, apiMiddlewares)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 15. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Catalog Module остановлен")
}
