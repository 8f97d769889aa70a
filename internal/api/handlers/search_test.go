package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arkstore/catalog-module/internal/domain/model"
	"github.com/arkstore/catalog-module/internal/repository"
	"github.com/arkstore/catalog-module/internal/resolver"
	"github.com/arkstore/catalog-module/internal/searchclient"
	"github.com/arkstore/catalog-module/internal/service"
	"github.com/arkstore/catalog-module/internal/transform"
)

// stubEngine — движок, всегда возвращающий заданную ошибку.
type stubEngine struct {
	err error
}

func (s *stubEngine) Search(_ context.Context, _ []byte) ([]byte, error) {
	return nil, s.err
}

// stubEntityRepo — репозиторий, который не должен вызываться
// при отказе движка.
type stubEntityRepo struct{}

func (s *stubEntityRepo) GetByID(_ context.Context, _ string) (*model.EntityRecord, error) {
	return nil, errors.New("не должен вызываться")
}

func (s *stubEntityRepo) GetByIDs(_ context.Context, _ []string) ([]*model.EntityRecord, error) {
	return nil, errors.New("не должен вызываться")
}

func (s *stubEntityRepo) GetReferences(_ context.Context, _ []string) ([]*model.EntityReference, error) {
	return nil, errors.New("не должен вызываться")
}

func (s *stubEntityRepo) List(_ context.Context, _ repository.EntityListParams) ([]*model.EntityRecord, error) {
	return nil, errors.New("не должен вызываться")
}

func (s *stubEntityRepo) Count(_ context.Context, _ repository.EntityListParams) (int, error) {
	return 0, errors.New("не должен вызываться")
}

func newSearchHandler(t *testing.T, engineErr error) *APIHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pipeline, err := transform.NewEntityPipeline(
		func(_ context.Context, std *model.StandardEntity, _ *transform.RequestContext) (*model.AuthorisedEntity, error) {
			return &model.AuthorisedEntity{
				StandardEntity: *std,
				Access:         model.EntityAccess{Metadata: true, Content: true},
			}, nil
		},
	)
	if err != nil {
		t.Fatalf("сборка pipeline: %v", err)
	}

	repo := &stubEntityRepo{}
	svc := service.NewSearchService(&stubEngine{err: engineErr}, repo, resolver.New(repo, logger), pipeline, logger)
	return &APIHandler{search: svc, logger: logger}
}

func doSearch(t *testing.T, h *APIHandler) (*httptest.ResponseRecorder, string) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"пауза"}`))
	rec := httptest.NewRecorder()
	h.Search(rec, r)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("разбор тела ошибки: %v", err)
	}
	return rec, body.Error.Code
}

func TestSearchRejectedQuery(t *testing.T) {
	// Отказ движка на синтаксисе advanced-запроса — ошибка клиента.
	h := newSearchHandler(t, fmt.Errorf("поиск: %w: статус 400", searchclient.ErrBadQuery))

	rec, code := doSearch(t, h)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидался статус 400, получен %d", rec.Code)
	}
	if code != "VALIDATION_ERROR" {
		t.Errorf("ожидался код VALIDATION_ERROR, получен %s", code)
	}
}

func TestSearchEngineOutage(t *testing.T) {
	// Недоступность движка — внутренняя ошибка, детали не утекают.
	h := newSearchHandler(t, fmt.Errorf("поиск: %w", searchclient.ErrUnavailable))

	rec, code := doSearch(t, h)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("ожидался статус 500, получен %d", rec.Code)
	}
	if code != "INTERNAL_ERROR" {
		t.Errorf("ожидался код INTERNAL_ERROR, получен %s", code)
	}
}
