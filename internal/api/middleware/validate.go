// validate.go — валидация входящих запросов по OpenAPI контракту.
// Запрос, не соответствующий контракту (тело, параметры, типы),
// отклоняется с 400 до того, как дойдёт до handlers.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/arkstore/catalog-module/internal/api/errors"
)

// OpenAPIValidator — middleware валидации запросов по контракту.
type OpenAPIValidator struct {
	router routers.Router
	logger *slog.Logger
}

// NewOpenAPIValidator создаёт валидатор из YAML-описания контракта.
func NewOpenAPIValidator(specData []byte, logger *slog.Logger) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(specData)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI контракта: %w", err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("невалидный OpenAPI контракт: %w", err)
	}

	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("создание OpenAPI router: %w", err)
	}

	return &OpenAPIValidator{
		router: router,
		logger: logger.With(slog.String("component", "openapi_validator")),
	}, nil
}

// Middleware возвращает HTTP middleware валидации запросов.
// Пути вне контракта (health, metrics) проходят без валидации —
// за 404 отвечает chi router, а не контракт.
func (v *OpenAPIValidator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := v.router.FindRoute(r)
			if err != nil {
				if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
					next.ServeHTTP(w, r)
					return
				}
				v.logger.Error("Ошибка поиска маршрута в контракте",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					// Авторизацию выполняет JWT middleware, не контракт
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}

			// ValidateRequest читает тело и восстанавливает r.Body
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				var reqErr *openapi3filter.RequestError
				if errors.As(err, &reqErr) {
					apierrors.InvalidRequest(w, reqErr.Error())
					return
				}
				apierrors.InvalidRequest(w, "Запрос не соответствует контракту")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
