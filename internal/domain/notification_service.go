package domain

import (
	"context"

	"NotifyFlow/internal/contract"
)

// NotificationService интерфейс продюсерской стороны.
type NotificationService interface {
	// CreateNotification создает записи уведомлений и публикует запрос
	CreateNotification(ctx context.Context, params CreateNotificationParams) (*Notification, error)
	// GetByCorrelationID получает уведомление по correlation id
	GetByCorrelationID(ctx context.Context, correlationID string) (*Notification, error)
	// ApplyReceipt применяет квитанцию о доставке к записи уведомления
	ApplyReceipt(ctx context.Context, receipt contract.DeliveryReceipt) error
}

// QueueAdmin административные операции над очередями.
type QueueAdmin interface {
	// PurgeQueue очищает очередь по алиасу и возвращает число удаленных сообщений
	PurgeQueue(alias string) (int, error)
	// PurgeAll очищает все известные очереди
	PurgeAll() (map[string]int, error)
}
