package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/arkstore/catalog-module/internal/domain/model"
	"github.com/arkstore/catalog-module/internal/repository"
	"github.com/arkstore/catalog-module/internal/resolver"
	"github.com/arkstore/catalog-module/internal/transform"
)

// fakeEntityRepo — мок EntityRepository с переопределяемыми методами.
type fakeEntityRepo struct {
	getByIDFunc       func(ctx context.Context, id string) (*model.EntityRecord, error)
	getByIDsFunc      func(ctx context.Context, ids []string) ([]*model.EntityRecord, error)
	getReferencesFunc func(ctx context.Context, ids []string) ([]*model.EntityReference, error)
	listFunc          func(ctx context.Context, params repository.EntityListParams) ([]*model.EntityRecord, error)
	countFunc         func(ctx context.Context, params repository.EntityListParams) (int, error)
}

func (f *fakeEntityRepo) GetByID(ctx context.Context, id string) (*model.EntityRecord, error) {
	return f.getByIDFunc(ctx, id)
}

func (f *fakeEntityRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.EntityRecord, error) {
	return f.getByIDsFunc(ctx, ids)
}

func (f *fakeEntityRepo) GetReferences(ctx context.Context, ids []string) ([]*model.EntityReference, error) {
	if f.getReferencesFunc == nil {
		return nil, nil
	}
	return f.getReferencesFunc(ctx, ids)
}

func (f *fakeEntityRepo) List(ctx context.Context, params repository.EntityListParams) ([]*model.EntityRecord, error) {
	return f.listFunc(ctx, params)
}

func (f *fakeEntityRepo) Count(ctx context.Context, params repository.EntityListParams) (int, error) {
	return f.countFunc(ctx, params)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newEntityService собирает сервис с открытой политикой доступа.
func newEntityService(t *testing.T, repo repository.EntityRepository) *EntityService {
	t.Helper()
	policy := NewAccessPolicy(nil, "")
	pipeline, err := transform.NewEntityPipeline(policy.EntityAccess())
	if err != nil {
		t.Fatalf("NewEntityPipeline: %v", err)
	}
	return NewEntityService(repo, resolver.New(repo, discardLogger()), pipeline, discardLogger())
}

func TestEntityServiceGet(t *testing.T) {
	parent := "arcp://name,corpus"
	repo := &fakeEntityRepo{
		getByIDFunc: func(_ context.Context, id string) (*model.EntityRecord, error) {
			return &model.EntityRecord{
				ID:         id,
				Name:       "Объект",
				EntityType: model.EntityTypeObject,
				MemberOf:   &parent,
			}, nil
		},
		getReferencesFunc: func(_ context.Context, _ []string) ([]*model.EntityReference, error) {
			return []*model.EntityReference{{ID: parent, Name: "Корпус"}}, nil
		},
	}

	svc := newEntityService(t, repo)

	doc, err := svc.Get(context.Background(), "arcp://name,corpus/item/1", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc["id"] != "arcp://name,corpus/item/1" {
		t.Errorf("неверный id: %v", doc["id"])
	}
	memberOf, ok := doc["memberOf"].(map[string]any)
	if !ok || memberOf["name"] != "Корпус" {
		t.Errorf("memberOf не разрешён: %v", doc["memberOf"])
	}
}

func TestEntityServiceGetNotFound(t *testing.T) {
	repo := &fakeEntityRepo{
		getByIDFunc: func(_ context.Context, _ string) (*model.EntityRecord, error) {
			return nil, repository.ErrNotFound
		},
	}

	svc := newEntityService(t, repo)

	_, err := svc.Get(context.Background(), "arcp://name,gone", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ошибка репозитория должна отображаться в ErrNotFound: %v", err)
	}
}

func TestEntityServiceList(t *testing.T) {
	var gotParams repository.EntityListParams
	repo := &fakeEntityRepo{
		listFunc: func(_ context.Context, params repository.EntityListParams) ([]*model.EntityRecord, error) {
			gotParams = params
			return []*model.EntityRecord{
				{ID: "arcp://name,corpus/item/1", EntityType: model.EntityTypeObject},
				{ID: "arcp://name,corpus/item/2", EntityType: model.EntityTypeObject},
			}, nil
		},
		countFunc: func(_ context.Context, _ repository.EntityListParams) (int, error) {
			return 57, nil
		},
	}

	svc := newEntityService(t, repo)

	params := repository.EntityListParams{Limit: 2, Offset: 10}
	result, err := svc.List(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if result.Total != 57 || result.Limit != 2 || result.Offset != 10 {
		t.Errorf("неверная пагинация результата: %+v", result)
	}
	if len(result.Entities) != 2 {
		t.Fatalf("ожидались 2 документа, получено %d", len(result.Entities))
	}
	// Порядок страницы сохраняется.
	if result.Entities[0]["id"] != "arcp://name,corpus/item/1" ||
		result.Entities[1]["id"] != "arcp://name,corpus/item/2" {
		t.Errorf("нарушен порядок документов: %v", result.Entities)
	}
	if gotParams.Limit != 2 || gotParams.Offset != 10 {
		t.Errorf("параметры не дошли до репозитория: %+v", gotParams)
	}
}

func TestEntityServiceListAbortsOnPipelineError(t *testing.T) {
	// Стадия обогащения падает — весь листинг возвращает ошибку,
	// а не страницу без части записей.
	repo := &fakeEntityRepo{
		listFunc: func(_ context.Context, _ repository.EntityListParams) ([]*model.EntityRecord, error) {
			return []*model.EntityRecord{
				{ID: "arcp://name,corpus/item/1", EntityType: model.EntityTypeObject},
			}, nil
		},
		countFunc: func(_ context.Context, _ repository.EntityListParams) (int, error) {
			return 1, nil
		},
	}

	extraErr := errors.New("внешний сервис обогащения недоступен")
	failing := func(_ context.Context, _ transform.Document, _ *transform.RequestContext) (transform.Document, error) {
		return nil, extraErr
	}

	policy := NewAccessPolicy(nil, "")
	pipeline, err := transform.NewEntityPipeline(policy.EntityAccess(), failing)
	if err != nil {
		t.Fatalf("NewEntityPipeline: %v", err)
	}
	svc := NewEntityService(repo, resolver.New(repo, discardLogger()), pipeline, discardLogger())

	_, err = svc.List(context.Background(), repository.EntityListParams{Limit: 10}, nil)
	if !errors.Is(err, extraErr) {
		t.Fatalf("ошибка pipeline должна прерывать листинг: %v", err)
	}
}
