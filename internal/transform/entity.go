package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/arkstore/catalog-module/internal/domain/model"
)

// EntityAccessFunc — обязательная стадия доступа для сущностей.
type EntityAccessFunc = Stage[*model.StandardEntity, *model.AuthorisedEntity]

// References — результат работы reference resolver: URI → ссылка.
// Отсутствие ключа означает висячую ссылку и отображается в null.
type References = map[string]*model.EntityReference

// EntityPipeline — pipeline преобразования EntityRecord → Document.
type EntityPipeline struct {
	access EntityAccessFunc
	extras ExtraFunc
}

// NewEntityPipeline создаёт pipeline сущностей.
// access обязателен — nil возвращает ErrNoAccessFunc ещё на этапе сборки
// приложения, до обслуживания первого запроса.
func NewEntityPipeline(access EntityAccessFunc, extras ...ExtraFunc) (*EntityPipeline, error) {
	if access == nil {
		return nil, ErrNoAccessFunc
	}
	return &EntityPipeline{
		access: access,
		extras: chainExtras(extras),
	}, nil
}

// StandardizeEntity — базовая стадия: нормализует каноническую запись.
// refs — карта разрешённых родительских ссылок; отсутствующий ключ даёт
// null в memberOf/rootCollection (висячая ссылка — не ошибка).
// Чистая функция: идемпотентна на полях, которыми владеет.
func StandardizeEntity(record *model.EntityRecord, refs References) *model.StandardEntity {
	std := &model.StandardEntity{
		ID:                record.ID,
		Name:              record.Name,
		Description:       record.Description,
		EntityType:        record.EntityType,
		MetadataLicenseID: record.MetadataLicenseID,
		ContentLicenseID:  record.ContentLicenseID,
	}
	if record.MemberOf != nil {
		std.MemberOf = refs[*record.MemberOf]
	}
	if record.RootCollection != nil {
		std.RootCollection = refs[*record.RootCollection]
	}
	return std
}

// Run прогоняет одну запись через все три стадии.
func (p *EntityPipeline) Run(ctx context.Context, record *model.EntityRecord, refs References, rc *RequestContext) (Document, error) {
	std := StandardizeEntity(record, refs)

	authorised, err := p.access(ctx, std, rc)
	if err != nil {
		return nil, fmt.Errorf("стадия доступа для %s: %w", record.ID, err)
	}

	doc, err := toDocument(authorised)
	if err != nil {
		return nil, fmt.Errorf("сериализация %s: %w", record.ID, err)
	}

	doc, err = p.extras(ctx, doc, rc)
	if err != nil {
		return nil, fmt.Errorf("стадия обогащения для %s: %w", record.ID, err)
	}
	return doc, nil
}

// RunAll прогоняет пакет записей конкурентно (записи независимы),
// сохраняя исходный порядок в результате независимо от порядка завершения.
// Ошибка pipeline любой записи прерывает весь пакет — неполный список,
// молча скрывающий записи, хуже повторяемой 500.
func (p *EntityPipeline) RunAll(ctx context.Context, records []*model.EntityRecord, refs References, rc *RequestContext) ([]Document, error) {
	docs := make([]Document, len(records))

	g, gctx := errgroup.WithContext(ctx)
	for i, record := range records {
		g.Go(func() error {
			doc, err := p.Run(gctx, record, refs, rc)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// toDocument сериализует типизированный результат стадии доступа
// в расширяемый Document для стадий обогащения.
func toDocument(v any) (Document, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
