package transform

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/arkstore/catalog-module/internal/domain/model"
)

// FileAccessFunc — обязательная стадия доступа для файлов.
// Метаданные файлов не гейтятся — только контент.
type FileAccessFunc = Stage[*model.StandardFile, *model.AuthorisedFile]

// FilePipeline — pipeline преобразования FileRecord → Document.
type FilePipeline struct {
	access FileAccessFunc
	extras ExtraFunc
}

// NewFilePipeline создаёт pipeline файлов. access обязателен.
func NewFilePipeline(access FileAccessFunc, extras ...ExtraFunc) (*FilePipeline, error) {
	if access == nil {
		return nil, ErrNoAccessFunc
	}
	return &FilePipeline{
		access: access,
		extras: chainExtras(extras),
	}, nil
}

// StandardizeFile — базовая стадия для файлов.
// У файлов memberOf/rootCollection обязательны в канонической записи,
// но разрешённая ссылка всё равно может быть null (родитель удалён).
func StandardizeFile(record *model.FileRecord, refs References) *model.StandardFile {
	return &model.StandardFile{
		ID:               record.ID,
		Filename:         record.Filename,
		MediaType:        record.MediaType,
		Size:             record.Size,
		MemberOf:         refs[record.MemberOf],
		RootCollection:   refs[record.RootCollection],
		ContentLicenseID: record.ContentLicenseID,
	}
}

// Run прогоняет одну запись файла через все три стадии.
func (p *FilePipeline) Run(ctx context.Context, record *model.FileRecord, refs References, rc *RequestContext) (Document, error) {
	std := StandardizeFile(record, refs)

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

// RunAll — конкурентный пакетный прогон с сохранением порядка.
// Семантика идентична EntityPipeline.RunAll.
func (p *FilePipeline) RunAll(ctx context.Context, records []*model.FileRecord, refs References, rc *RequestContext) ([]Document, error) {
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
