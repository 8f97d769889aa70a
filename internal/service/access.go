// access.go — эталонная реализация обязательной стадии доступа pipeline.
// Доступ определяется лицензиями записи: публичные лицензии (из
// конфигурации) открыты всем; остальные требуют членства в группе JWT,
// совпадающей с URI лицензии. Закрытому контенту прикладывается URL
// авторизации, по которому клиент может запросить доступ.
package service

import (
	"context"

	"github.com/arkstore/catalog-module/internal/api/middleware"
	"github.com/arkstore/catalog-module/internal/domain/model"
	"github.com/arkstore/catalog-module/internal/transform"
)

// AccessPolicy — политика доступа по лицензиям.
type AccessPolicy struct {
	publicLicenses   map[string]bool
	authorizationURL string
}

// NewAccessPolicy создаёт политику доступа.
// publicLicenses — URI лицензий, открытых без авторизации.
// authorizationURL — куда направлять за авторизацией контента
// (пустая строка — поле не заполняется).
func NewAccessPolicy(publicLicenses []string, authorizationURL string) *AccessPolicy {
	public := make(map[string]bool, len(publicLicenses))
	for _, l := range publicLicenses {
		public[l] = true
	}
	return &AccessPolicy{
		publicLicenses:   public,
		authorizationURL: authorizationURL,
	}
}

// EntityAccess возвращает стадию доступа для сущностей:
// отдельные гейты на метаданные и контент.
func (p *AccessPolicy) EntityAccess() transform.EntityAccessFunc {
	return func(_ context.Context, std *model.StandardEntity, rc *transform.RequestContext) (*model.AuthorisedEntity, error) {
		access := model.EntityAccess{
			Metadata: p.Allows(rc, std.MetadataLicenseID),
			Content:  p.Allows(rc, std.ContentLicenseID),
		}
		if !access.Content {
			access.ContentAuthorizationURL = p.authorizationURL
		}
		return &model.AuthorisedEntity{StandardEntity: *std, Access: access}, nil
	}
}

// FileAccess возвращает стадию доступа для файлов:
// метаданные файлов всегда публичны, гейт только на контент.
func (p *AccessPolicy) FileAccess() transform.FileAccessFunc {
	return func(_ context.Context, std *model.StandardFile, rc *transform.RequestContext) (*model.AuthorisedFile, error) {
		access := model.FileAccess{
			Content: p.Allows(rc, std.ContentLicenseID),
		}
		if !access.Content {
			access.ContentAuthorizationURL = p.authorizationURL
		}
		return &model.AuthorisedFile{StandardFile: *std, Access: access}, nil
	}
}

// Allows решает, открывает ли текущий запрос указанную лицензию.
// Пустая лицензия и публичные лицензии открыты всем; остальные требуют
// совпадающей группы (или scope для сервисного аккаунта) в JWT.
func (p *AccessPolicy) Allows(rc *transform.RequestContext, licenseID string) bool {
	if licenseID == "" || p.publicLicenses[licenseID] {
		return true
	}
	if rc == nil || rc.Request == nil {
		return false
	}
	claims := middleware.ClaimsFromContext(rc.Request.Context())
	if claims == nil {
		return false
	}
	return claims.HasLicense(licenseID)
}
