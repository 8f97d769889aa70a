// Пакет transform — трёхстадийный pipeline преобразования канонических
// записей каталога в ответы API.
//
// Стадия 1 (base) — фиксированная нормализация: отбрасывает служебные поля
// БД (PK, timestamps, storage-мешок), подставляет разрешённые ссылки
// memberOf/rootCollection вместо сырых URI.
// Стадия 2 (access) — обязательная аннотация доступа, задаётся вызывающим
// кодом. Отсутствие функции доступа — ошибка конфигурации при создании
// pipeline, а не на запросе: молчаливый дефолт «всё публично» или
// «всё закрыто» одинаково небезопасен.
// Стадия 3 (extras) — упорядоченный список функций обогащения; выполняются
// строго последовательно, так как поздние функции могут зависеть от полей,
// добавленных ранними.
//
// Ошибка любой стадии прерывает преобразование и поднимается вызывающему
// коду без retry и без подавления: list-endpoints при ошибке pipeline
// одной записи прерывают весь запрос.
package transform

import (
	"context"
	"errors"
	"net/http"
)

// Ошибки конфигурации pipeline.
var (
	// ErrNoAccessFunc — pipeline создаётся без стадии доступа.
	ErrNoAccessFunc = errors.New("pipeline требует функцию стадии доступа")
)

// RequestContext — контекст запроса, передаваемый стадиям доступа
// и обогащения: входящий HTTP-запрос плюс произвольные коллабораторы,
// зарегистрированные при сборке приложения.
type RequestContext struct {
	// Request — входящий HTTP-запрос (claims авторизации — в его контексте).
	Request *http.Request
	// Collaborators — доступ к разделяемым клиентам для стадий обогащения.
	Collaborators map[string]any
}

// Document — выход pipeline: произвольно расширяемый JSON-объект.
// Стадии обогащения свободны добавлять поля, но не обязаны знать
// конкретный Go-тип предыдущей стадии.
type Document = map[string]any

// Stage — одна стадия преобразования In → Out.
type Stage[In, Out any] func(ctx context.Context, in In, rc *RequestContext) (Out, error)

// Compose соединяет две стадии в одну: выход f подаётся на вход g.
// Ошибка f прерывает цепочку до вызова g.
func Compose[A, B, C any](f Stage[A, B], g Stage[B, C]) Stage[A, C] {
	return func(ctx context.Context, in A, rc *RequestContext) (C, error) {
		mid, err := f(ctx, in, rc)
		if err != nil {
			var zero C
			return zero, err
		}
		return g(ctx, mid, rc)
	}
}

// ExtraFunc — стадия обогащения: получает документ предыдущей стадии,
// возвращает его надмножество.
type ExtraFunc = Stage[Document, Document]

// chainExtras сворачивает список стадий обогащения в одну стадию.
// Пустой список — тождественная стадия.
func chainExtras(extras []ExtraFunc) ExtraFunc {
	chained := func(_ context.Context, doc Document, _ *RequestContext) (Document, error) {
		return doc, nil
	}
	for _, extra := range extras {
		chained = Compose(chained, extra)
	}
	return chained
}
