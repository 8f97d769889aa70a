// Пакет delivery — негоциатор отдачи контента.
// Ядро не умеет читать ни один storage backend само: pluggable handler
// возвращает один из вариантов закрытого объединения
// Redirect | Stream | FilePath, а негоциатор переводит вариант
// в поведение на проводе (redirect, streaming, offload на reverse proxy).
package delivery

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/arkstore/catalog-module/internal/domain/model"
)

// Ошибки негоциатора.
var (
	// ErrUnavailable — handler сигнализировал мягкое отсутствие контента
	// (например, дериват ещё не сгенерирован). Отображается в 404.
	// Отличается от ошибки handler'а (инфраструктурный сбой → 500) —
	// различие несущее, не косметика.
	ErrUnavailable = errors.New("контент недоступен")
)

// Metadata — метаданные контента для заголовков ответа.
type Metadata struct {
	// ContentType — MIME-тип
	ContentType string
	// ContentLength — размер в байтах (-1 = неизвестен)
	ContentLength int64
	// ETag — опциональный ETag (без кавычек)
	ETag string
	// LastModified — опциональное время последнего изменения
	LastModified *time.Time
}

// FileResult — закрытое объединение результатов handler'а.
// Ровно три варианта: Redirect, Stream, FilePath.
type FileResult interface {
	fileResult()
}

// Redirect — контент доступен по внешнему URL.
type Redirect struct {
	URL string
}

// Stream — контент отдаётся байтовым потоком.
// Ответственность за закрытие Body несёт негоциатор — на каждом пути выхода.
type Stream struct {
	Body io.ReadCloser
	Meta Metadata
}

// FilePath — контент лежит на диске.
// При непустом AccelPath отдача делегируется reverse proxy
// (X-Accel-Redirect), процесс приложения байты не передаёт.
type FilePath struct {
	Path      string
	AccelPath string
	Meta      Metadata
}

func (Redirect) fileResult() {}
func (Stream) fileResult()   {}
func (FilePath) fileResult() {}

// FileHandler — pluggable точка отдачи контента файлов.
// Get/Head возвращают (nil, nil) как сигнал мягкого отсутствия.
type FileHandler interface {
	// Get возвращает контент файла.
	Get(ctx context.Context, record *model.FileRecord) (FileResult, error)
	// Head возвращает только метаданные — без открытия дескрипторов
	// и генерации подписанных URL.
	Head(ctx context.Context, record *model.FileRecord) (*Metadata, error)
}

// CrateHandler — pluggable точка отдачи метаданных-документа сущности.
// Тот же контракт результата, независимая точка подключения.
type CrateHandler interface {
	Get(ctx context.Context, record *model.EntityRecord) (FileResult, error)
	Head(ctx context.Context, record *model.EntityRecord) (*Metadata, error)
}
