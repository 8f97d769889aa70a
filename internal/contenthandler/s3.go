package contenthandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/arkstore/catalog-module/internal/delivery"
	"github.com/arkstore/catalog-module/internal/domain/model"
)

// Ключ объекта S3 в storage-мешке записи.
const storageKeyKey = "key"

// S3Handler — отдача контента из объектного хранилища presigned-редиректом:
// байты не проходят через процесс приложения.
type S3Handler struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
	logger  *slog.Logger
}

// NewS3Handler создаёт S3 handler.
// expiry — срок жизни presigned URL.
func NewS3Handler(client *s3.Client, bucket string, expiry time.Duration, logger *slog.Logger) *S3Handler {
	return &S3Handler{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		expiry:  expiry,
		logger:  logger.With(slog.String("component", "s3_handler")),
	}
}

// Get возвращает Redirect с presigned GET URL.
// Отсутствие ключа в мешке или объекта в bucket — мягкое отсутствие.
func (h *S3Handler) Get(ctx context.Context, record *model.FileRecord) (delivery.FileResult, error) {
	key, ok := h.objectKey(record.Storage)
	if !ok {
		return nil, nil
	}

	// HeadObject до подписи: отсутствующий объект должен дать 404,
	// а не рабочую на вид ссылку с ошибкой внутри.
	if _, err := h.head(ctx, key); err != nil {
		if isNotFound(err) {
			h.logger.Warn("Объект записи отсутствует в bucket",
				slog.String("id", record.ID),
				slog.String("key", key),
			)
			return nil, nil
		}
		return nil, err
	}

	presigned, err := h.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(h.expiry))
	if err != nil {
		return nil, fmt.Errorf("подпись URL для %s: %w", key, err)
	}

	return delivery.Redirect{URL: presigned.URL}, nil
}

// Head возвращает метаданные объекта. Подписанные URL не генерируются —
// HEAD-запросу они не нужны.
func (h *S3Handler) Head(ctx context.Context, record *model.FileRecord) (*delivery.Metadata, error) {
	key, ok := h.objectKey(record.Storage)
	if !ok {
		return nil, nil
	}

	out, err := h.head(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	meta := fileMeta(record)
	if out.ContentLength != nil {
		meta.ContentLength = *out.ContentLength
	}
	if out.ETag != nil {
		meta.ETag = *out.ETag
	}
	if out.LastModified != nil {
		meta.LastModified = out.LastModified
	}
	return &meta, nil
}

func (h *S3Handler) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := h.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("HeadObject %s: %w", key, err)
	}
	return out, nil
}

// objectKey извлекает ключ объекта из storage-мешка.
func (h *S3Handler) objectKey(storage map[string]any) (string, bool) {
	raw, ok := storage[storageKeyKey]
	if !ok {
		return "", false
	}
	key, ok := raw.(string)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// isNotFound распознаёт отсутствие объекта в ответе S3.
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}
