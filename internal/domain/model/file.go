package model

import "time"

// FileRecord — каноническая запись файла (таблица files).
// В отличие от EntityRecord memberOf/rootCollection обязательны,
// а лицензия только на контент — метаданные файлов всегда публичны.
type FileRecord struct {
	// PK — числовой первичный ключ (только для БД)
	PK int64
	// ID — глобально уникальный URI файла
	ID string
	// Filename — имя файла
	Filename string
	// MediaType — MIME-тип
	MediaType string
	// Size — размер в байтах
	Size int64
	// MemberOf — URI родительской сущности (обязательно)
	MemberOf string
	// RootCollection — URI коллекции верхнего уровня (обязательно)
	RootCollection string
	// ContentLicenseID — URI лицензии на контент
	ContentLicenseID string
	// Storage — непрозрачный JSONB-мешок для content handlers
	Storage map[string]any
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// StandardFile — нормализованная проекция FileRecord после базовой стадии.
type StandardFile struct {
	ID             string           `json:"id"`
	Filename       string           `json:"filename"`
	MediaType      string           `json:"mediaType"`
	Size           int64            `json:"size"`
	MemberOf       *EntityReference `json:"memberOf"`
	RootCollection *EntityReference `json:"rootCollection"`

	// Лицензия нужна стадии доступа, наружу не сериализуется.
	ContentLicenseID string `json:"-"`
}

// FileAccess — блок доступа файла: гейт только на контент.
type FileAccess struct {
	Content                 bool   `json:"content"`
	ContentAuthorizationURL string `json:"contentAuthorizationUrl,omitempty"`
}

// AuthorisedFile — StandardFile + блок доступа.
type AuthorisedFile struct {
	StandardFile
	Access FileAccess `json:"access"`
}
