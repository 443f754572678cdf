package rabbit

import (
	"context"
	"fmt"

	"NotifyFlow/internal/contract"
	"NotifyFlow/pkg/rabbitmq"
	"github.com/wb-go/wbf/zlog"
)

// RequestPublisher публикует запросы на отправку уведомлений в очередь
// оркестратора. Ошибка сериализации или транспорта возвращается
// вызывающему синхронно; внутреннего повтора сверх стратегии клиента нет.
type RequestPublisher struct {
	publisher  *rabbitmq.Publisher
	routingKey string
}

// NewRequestPublisher создает публикатора запросов.
func NewRequestPublisher(client *rabbitmq.RabbitClient, exchange, routingKey string) *RequestPublisher {
	return &RequestPublisher{
		publisher:  rabbitmq.NewPublisher(client, exchange, "application/json"),
		routingKey: routingKey,
	}
}

// Publish сериализует запрос и публикует его с correlation id в
// транспортном свойстве. Возвращает управление после принятия брокером.
func (p *RequestPublisher) Publish(ctx context.Context, req contract.Request) error {
	body, err := contract.EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	err = p.publisher.Publish(ctx, body, p.routingKey,
		rabbitmq.WithCorrelationID(req.Envelope.CorrelationID),
		rabbitmq.WithMessageID(req.Envelope.MessageID),
	)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("correlation_id", req.Envelope.CorrelationID).
			Msg("failed to publish notification request")
		return fmt.Errorf("failed to publish request: %w", err)
	}

	return nil
}
