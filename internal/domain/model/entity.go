// Пакет model — доменные модели Catalog Module.
// EntityRecord / FileRecord — канонические записи каталога (таблицы entities / files).
// Standard* / Authorised* — эфемерные проекции, создаваемые pipeline на каждый запрос.
package model

import "time"

// Известные типы сущностей (открытое множество URI — ниже только те,
// для которых есть специальная логика).
const (
	EntityTypeCollection = "https://w3id.org/ldac/profile#Collection"
	EntityTypeObject     = "https://w3id.org/ldac/profile#Object"
	EntityTypeFile       = "https://schema.org/MediaObject"
)

// EntityRecord — каноническая запись сущности каталога (таблица entities).
// Catalog Module использует записи только для чтения — наполнение таблиц
// выполняет внешний ingestion.
type EntityRecord struct {
	// PK — числовой первичный ключ (только для БД, наружу не отдаётся)
	PK int64
	// ID — глобально уникальный URI сущности
	ID string
	// Name — отображаемое имя
	Name string
	// Description — описание (опционально)
	Description *string
	// EntityType — URI типа сущности (Collection, Object, MediaObject, ...)
	EntityType string
	// MemberOf — URI родительской сущности (nil для коллекций верхнего уровня)
	MemberOf *string
	// RootCollection — URI коллекции верхнего уровня (nil для коллекций)
	RootCollection *string
	// MetadataLicenseID — URI лицензии на метаданные
	MetadataLicenseID string
	// ContentLicenseID — URI лицензии на контент
	ContentLicenseID string
	// Storage — непрозрачный JSONB-мешок для content handlers
	// (пути на диске, ключи S3 и т.п.). Клиентам не отдаётся.
	Storage map[string]any
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// EntityReference — разрешённая ссылка на родительскую сущность.
// nil-ссылка означает, что родитель удалён из каталога (не ошибка).
type EntityReference struct {
	ID   string `json:"@id"`
	Name string `json:"name"`
}

// StandardEntity — нормализованная проекция EntityRecord после базовой
// стадии pipeline: без PK, timestamps, storage-мешка и лицензий;
// memberOf/rootCollection заменены на разрешённые ссылки.
// Это единственная форма, на которую могут рассчитывать custom-стадии.
type StandardEntity struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    *string          `json:"description"`
	EntityType     string           `json:"entityType"`
	MemberOf       *EntityReference `json:"memberOf"`
	RootCollection *EntityReference `json:"rootCollection"`

	// Лицензии нужны стадии доступа, наружу не сериализуются.
	MetadataLicenseID string `json:"-"`
	ContentLicenseID  string `json:"-"`
}

// EntityAccess — блок доступа сущности.
type EntityAccess struct {
	// Metadata — можно ли раскрывать метаданные текущему запросу
	Metadata bool `json:"metadata"`
	// Content — можно ли раскрывать контент
	Content bool `json:"content"`
	// ContentAuthorizationURL — куда идти за авторизацией контента (опционально)
	ContentAuthorizationURL string `json:"contentAuthorizationUrl,omitempty"`
}

// AuthorisedEntity — StandardEntity + блок доступа (результат стадии доступа).
type AuthorisedEntity struct {
	StandardEntity
	Access EntityAccess `json:"access"`
}
