package monitor

import (
	"context"

	"NotifyFlow/pkg/rabbitmq"
	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

// DLQListener логирует сообщения, попавшие в dead-letter очередь:
// заголовки, correlation id, маршрутную информацию и тело.
// Только наблюдение, никакого автоматического восстановления.
type DLQListener struct {
	client *rabbitmq.RabbitClient
	queue  string
}

// NewDLQListener создает слушателя dead-letter очереди.
func NewDLQListener(client *rabbitmq.RabbitClient, queue string) *DLQListener {
	return &DLQListener{
		client: client,
		queue:  queue,
	}
}

// Start запускает слушателя и блокируется до отмены контекста.
func (l *DLQListener) Start(ctx context.Context) error {
	consumer := rabbitmq.NewConsumer(l.client, rabbitmq.ConsumerConfig{
		Queue:         l.queue,
		Workers:       1,
		PrefetchCount: 1,
	}, l.handle)

	return consumer.Start(ctx)
}

// handle пишет полное содержимое сообщения в лог для ручного разбора.
func (l *DLQListener) handle(_ context.Context, msg amqp091.Delivery) error {
	headers := make(map[string]interface{}, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}

	zlog.Logger.Error().
		Str("queue", l.queue).
		Str("correlation_id", msg.CorrelationId).
		Str("message_id", msg.MessageId).
		Str("exchange", msg.Exchange).
		Str("routing_key", msg.RoutingKey).
		Interface("headers", headers).
		Str("body", string(msg.Body)).
		Msg("message arrived in dead-letter queue")

	return nil
}
