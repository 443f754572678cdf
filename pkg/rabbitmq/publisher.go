package rabbitmq

import (
	"context"
	"strconv"
	"time"

	"NotifyFlow/pkg/retry"
	"github.com/rabbitmq/amqp091-go"
)

// Publisher публикует сообщения в фиксированный exchange.
type Publisher struct {
	client      *RabbitClient
	exchange    string
	contentType string
}

// PublishOption опция публикации сообщения.
type PublishOption func(*amqp091.Publishing)

// WithExpiration устанавливает TTL сообщения.
func WithExpiration(ttl time.Duration) PublishOption {
	return func(p *amqp091.Publishing) {
		p.Expiration = formatMilliseconds(ttl)
	}
}

// WithCorrelationID устанавливает correlation id как транспортное свойство.
func WithCorrelationID(id string) PublishOption {
	return func(p *amqp091.Publishing) {
		p.CorrelationId = id
	}
}

// WithMessageID устанавливает message id сообщения.
func WithMessageID(id string) PublishOption {
	return func(p *amqp091.Publishing) {
		p.MessageId = id
	}
}

// NewPublisher создает Publisher для указанного exchange.
func NewPublisher(client *RabbitClient, exchange, contentType string) *Publisher {
	return &Publisher{
		client:      client,
		exchange:    exchange,
		contentType: contentType,
	}
}

// Publish публикует сообщение с повторными попытками по стратегии клиента.
// Возвращает управление после принятия сообщения брокером.
func (p *Publisher) Publish(ctx context.Context, body []byte, routingKey string, opts ...PublishOption) error {
	msg := amqp091.Publishing{
		ContentType:  p.contentType,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}
	for _, opt := range opts {
		opt(&msg)
	}

	publish := func() error {
		p.client.mu.Lock()
		defer p.client.mu.Unlock()
		return p.client.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	}

	return retry.Do(publish, p.client.config.PublishRetry)
}

func formatMilliseconds(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatInt(ms, 10)
}
