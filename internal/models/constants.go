package models

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

const (
	// DemoEmail и DemoPassword единственная пара учётных данных демо-аутентификатора
	DemoEmail    = "demo@futmap.com"
	DemoPassword = "demo123"

	// DefaultSessionNamespace префикс ключей сессии в хранилище
	DefaultSessionNamespace = "futmap"

	// DefaultAvatar аватар нового пользователя
	DefaultAvatar = "https://storage.googleapis.com/workspace-0f70711f-8b4e-4d94-86f1-2a93ccde5887/image/f9a9f673-cce1-4ceb-a930-23f7de2c2e9c.png"
)

const (
	// DefaultMaxPrice верхняя граница ценового фильтра по умолчанию
	DefaultMaxPrice = 500

	// MaxRating максимальный рейтинг поля
	MaxRating = 5.0

	// DefaultStoreTimeout ограничение на одну операцию с хранилищем, в секундах
	DefaultStoreTimeout = 3
)
