package orchestrator

import (
	"context"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
	"NotifyFlow/pkg/rabbitmq"
	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

// Consumer читает запросы на отправку из очереди запросов и передает
// их оркестратору.
type Consumer struct {
	orchestrator *Orchestrator
	client       *rabbitmq.RabbitClient
	queue        string
	workers      int
	prefetch     int
	maxRetries   int
}

// NewConsumer создает консьюмера очереди запросов.
func NewConsumer(orch *Orchestrator, client *rabbitmq.RabbitClient,
	queue string, workers, prefetch, maxRetries int) *Consumer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Consumer{
		orchestrator: orch,
		client:       client,
		queue:        queue,
		workers:      workers,
		prefetch:     prefetch,
		maxRetries:   maxRetries,
	}
}

// Start запускает обработку и блокируется до отмены контекста.
func (c *Consumer) Start(ctx context.Context) error {
	consumer := rabbitmq.NewConsumer(c.client, rabbitmq.ConsumerConfig{
		Queue:         c.queue,
		Workers:       c.workers,
		PrefetchCount: c.prefetch,
		MaxRetries:    c.maxRetries,
	}, c.handle)

	return consumer.Start(ctx)
}

// handle разбирает тело сообщения и отдает запрос оркестратору.
// Нечитаемое тело и ошибки конфигурации неустранимы: такие сообщения
// уходят в dead-letter очередь без повтора.
func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) error {
	req, err := contract.DecodeRequest(msg.Body)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("correlation_id", msg.CorrelationId).
			Msg("failed to decode notification request")
		return rabbitmq.Reject(err)
	}

	zlog.Logger.Debug().
		Str("correlation_id", req.Envelope.CorrelationID).
		Int("channels", len(req.Envelope.Channels)).
		Msg("notification request received")

	// Последняя доставка: после нее временный сбой уже не повторится,
	// и квитанция о неуспехе должна уйти продюсеру.
	final := rabbitmq.RetryCount(msg) >= int64(c.maxRetries)

	if err := c.orchestrator.Handle(ctx, req, final); err != nil {
		if domain.IsPermanent(err) {
			return rabbitmq.Reject(err)
		}
		return err
	}
	return nil
}
