// Пакет contract — встроенный OpenAPI контракт Catalog Module.
// Используется middleware валидации запросов.
package contract

import _ "embed"

//go:embed openapi.yaml
var spec []byte

// Spec возвращает YAML-описание контракта API.
func Spec() []byte {
	return spec
}
