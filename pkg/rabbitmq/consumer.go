package rabbitmq

import (
	"context"
	"errors"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

// retryCountHeader заголовок со счетчиком повторных доставок.
const retryCountHeader = "x-retry-count"

// HandlerFunc обработчик одного сообщения. Ненулевая ошибка приводит
// к отклонению сообщения.
type HandlerFunc func(ctx context.Context, msg amqp091.Delivery) error

// retryPublisher переиздает сообщение для повторной доставки.
// Покрывается *amqp091.Channel.
type retryPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// ConsumerConfig конфигурация консьюмера.
type ConsumerConfig struct {
	Queue         string
	Workers       int
	PrefetchCount int
	// MaxRetries ограничивает количество повторных доставок сообщения.
	// После превышения сообщение отклоняется и уходит в dead-letter очередь.
	MaxRetries int
}

// Consumer читает сообщения из очереди пулом воркеров.
// Подтверждение происходит только после успешного выполнения обработчика.
// При временной ошибке сообщение переиздается в ту же очередь с
// инкрементом счетчика x-retry-count; после исчерпания лимита или при
// ошибке, помеченной через Reject, сообщение отклоняется без возврата
// и уходит в dead-letter очередь.
type Consumer struct {
	client  *RabbitClient
	config  ConsumerConfig
	handler HandlerFunc
}

type rejectError struct {
	err error
}

func (e *rejectError) Error() string { return e.err.Error() }
func (e *rejectError) Unwrap() error { return e.err }

// Reject помечает ошибку как неустранимую: повтор не имеет смысла,
// сообщение сразу уходит в dead-letter очередь.
func Reject(err error) error {
	if err == nil {
		return nil
	}
	return &rejectError{err: err}
}

// IsReject сообщает, помечена ли ошибка как неустранимая.
func IsReject(err error) bool {
	var re *rejectError
	return errors.As(err, &re)
}

// NewConsumer создает консьюмера для очереди.
func NewConsumer(client *RabbitClient, cfg ConsumerConfig, handler HandlerFunc) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Consumer{
		client:  client,
		config:  cfg,
		handler: handler,
	}
}

// Start запускает воркеров и блокируется до отмены контекста.
// Каждый воркер работает на собственном канале.
func (c *Consumer) Start(ctx context.Context) error {
	var wg sync.WaitGroup

	for i := 0; i < c.config.Workers; i++ {
		ch, err := c.client.Channel()
		if err != nil {
			return err
		}
		if err := ch.Qos(c.config.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			return err
		}

		deliveries, err := ch.Consume(c.config.Queue, "", false, false, false, false, nil)
		if err != nil {
			_ = ch.Close()
			return err
		}

		wg.Add(1)
		go func(ch *amqp091.Channel, deliveries <-chan amqp091.Delivery) {
			defer wg.Done()
			defer func() { _ = ch.Close() }()
			c.work(ctx, ch, deliveries)
		}(ch, deliveries)
	}

	wg.Wait()
	return nil
}

func (c *Consumer) work(ctx context.Context, ch *amqp091.Channel, deliveries <-chan amqp091.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, ch, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, ch retryPublisher, msg amqp091.Delivery) {
	err := c.handler(ctx, msg)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			zlog.Logger.Error().Err(ackErr).Str("queue", c.config.Queue).Msg("failed to ack message")
		}
		return
	}

	attempts := RetryCount(msg)

	if IsReject(err) || attempts >= int64(c.config.MaxRetries) {
		zlog.Logger.Warn().
			Err(err).
			Str("queue", c.config.Queue).
			Str("correlation_id", msg.CorrelationId).
			Int64("attempts", attempts).
			Msg("message rejected to dead-letter queue")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			zlog.Logger.Error().Err(nackErr).Str("queue", c.config.Queue).Msg("failed to nack message")
		}
		return
	}

	// Переиздаем копию с инкрементом счетчика и подтверждаем оригинал.
	// Возврат через Nack(requeue) не увеличивает счетчик доставок,
	// поэтому ограниченный повтор реализован переизданием.
	if pubErr := c.republish(ctx, ch, msg, attempts+1); pubErr != nil {
		zlog.Logger.Error().Err(pubErr).Str("queue", c.config.Queue).Msg("failed to republish message for retry")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			zlog.Logger.Error().Err(nackErr).Str("queue", c.config.Queue).Msg("failed to nack message")
		}
		return
	}

	zlog.Logger.Warn().
		Err(err).
		Str("queue", c.config.Queue).
		Str("correlation_id", msg.CorrelationId).
		Int64("attempt", attempts+1).
		Msg("message handling failed, retry scheduled")

	if ackErr := msg.Ack(false); ackErr != nil {
		zlog.Logger.Error().Err(ackErr).Str("queue", c.config.Queue).Msg("failed to ack message after republish")
	}
}

func (c *Consumer) republish(ctx context.Context, ch retryPublisher, msg amqp091.Delivery, attempt int64) error {
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryCountHeader] = attempt

	return ch.PublishWithContext(ctx, "", c.config.Queue, false, false, amqp091.Publishing{
		ContentType:   msg.ContentType,
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: msg.CorrelationId,
		MessageId:     msg.MessageId,
		Timestamp:     msg.Timestamp,
		Headers:       headers,
		Body:          msg.Body,
	})
}

// RetryCount возвращает количество уже выполненных повторов сообщения.
func RetryCount(msg amqp091.Delivery) int64 {
	switch v := msg.Headers[retryCountHeader].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}
