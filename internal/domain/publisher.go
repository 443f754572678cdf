package domain

import (
	"context"

	"NotifyFlow/internal/contract"
)

// RequestPublisher интерфейс для публикации запросов на отправку уведомлений.
type RequestPublisher interface {
	// Publish публикует запрос и возвращает управление после принятия брокером
	Publish(ctx context.Context, req contract.Request) error
}

// ReceiptPublisher интерфейс для публикации квитанций о доставке.
type ReceiptPublisher interface {
	// Publish публикует квитанцию в очередь квитанций продюсера
	Publish(ctx context.Context, receipt contract.DeliveryReceipt) error
}
