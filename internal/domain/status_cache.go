package domain

import (
	"context"
	"time"
)

// StatusCache интерфейс кеша статусов уведомлений.
type StatusCache interface {
	// Get получает значение по ключу
	Get(ctx context.Context, key string) (string, error)
	// SetWithExpiration устанавливает значение с временем жизни.
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}
