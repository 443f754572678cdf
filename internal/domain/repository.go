package domain

import (
	"context"
)

// NotificationRepository интерфейс для работы с уведомлениями в базе данных.
type NotificationRepository interface {
	// Create создает новое уведомление в статусе pending
	Create(ctx context.Context, params CreateParams) (*Notification, error)
	// GetByCorrelationID получает уведомление по correlation id
	GetByCorrelationID(ctx context.Context, correlationID string) (*Notification, error)
	// MarkSent переводит уведомление pending -> sent.
	// Возвращает false, если статус уже терминальный (повторная квитанция)
	MarkSent(ctx context.Context, correlationID string) (bool, error)
	// MarkFailed переводит уведомление pending -> failed с причиной.
	// Возвращает false, если статус уже терминальный
	MarkFailed(ctx context.Context, correlationID, reason string) (bool, error)
}

// CreateParams параметры для создания уведомления.
type CreateParams struct {
	Recipient     string
	Subject       string
	OwnerType     string
	OwnerID       string
	Channel       string
	Template      string
	CorrelationID string
	Status        DispatchStatus
}
