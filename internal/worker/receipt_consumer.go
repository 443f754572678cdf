package worker

import (
	"context"
	"errors"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
	"NotifyFlow/pkg/rabbitmq"
	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

// ReceiptConsumer читает квитанции о доставке на стороне продюсера
// и применяет их к записям уведомлений.
type ReceiptConsumer struct {
	service    domain.NotificationService
	client     *rabbitmq.RabbitClient
	queue      string
	workers    int
	prefetch   int
	maxRetries int
}

// NewReceiptConsumer создает консьюмера очереди квитанций.
func NewReceiptConsumer(service domain.NotificationService, client *rabbitmq.RabbitClient,
	queue string, workers, prefetch, maxRetries int) *ReceiptConsumer {
	return &ReceiptConsumer{
		service:    service,
		client:     client,
		queue:      queue,
		workers:    workers,
		prefetch:   prefetch,
		maxRetries: maxRetries,
	}
}

// Start запускает обработку и блокируется до отмены контекста.
func (c *ReceiptConsumer) Start(ctx context.Context) error {
	consumer := rabbitmq.NewConsumer(c.client, rabbitmq.ConsumerConfig{
		Queue:         c.queue,
		Workers:       c.workers,
		PrefetchCount: c.prefetch,
		MaxRetries:    c.maxRetries,
	}, c.handle)

	return consumer.Start(ctx)
}

// handle разбирает квитанцию и применяет ее. Неизвестный correlation id
// намеренно возвращается как ошибка: квитанция уходит на повтор и затем
// в dead-letter очередь, а не теряется молча.
func (c *ReceiptConsumer) handle(ctx context.Context, msg amqp091.Delivery) error {
	receipt, err := contract.DecodeReceipt(msg.Body)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("correlation_id", msg.CorrelationId).
			Msg("failed to decode delivery receipt")
		return rabbitmq.Reject(err)
	}

	zlog.Logger.Debug().
		Str("correlation_id", receipt.CorrelationID).
		Str("channel", receipt.Channel.String()).
		Str("status", receipt.Status.String()).
		Msg("delivery receipt received")

	if err := c.service.ApplyReceipt(ctx, receipt); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			zlog.Logger.Warn().
				Str("correlation_id", receipt.CorrelationID).
				Msg("receipt references unknown notification")
		}
		return err
	}
	return nil
}
