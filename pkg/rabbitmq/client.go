package rabbitmq

import (
	"fmt"
	"sync"
	"time"

	"NotifyFlow/pkg/retry"
	"github.com/rabbitmq/amqp091-go"
)

// DLXName имя dead-letter exchange, общее для всех очередей.
const DLXName = "dlx"

// DLQSuffix суффикс имени dead-letter очереди.
const DLQSuffix = ".dlq"

// ClientConfig конфигурация подключения к RabbitMQ.
type ClientConfig struct {
	URL            string
	ConnectionName string
	ConnectTimeout time.Duration
	Heartbeat      time.Duration
	PublishRetry   retry.Strategy
}

// RabbitClient обертка над соединением amqp091.
// Канал защищен мьютексом и может использоваться из нескольких горутин.
type RabbitClient struct {
	config ClientConfig
	conn   *amqp091.Connection

	mu sync.Mutex
	ch *amqp091.Channel
}

// QueueInfo состояние очереди: глубина и количество активных консьюмеров.
type QueueInfo struct {
	Name      string
	Messages  int
	Consumers int
}

// NewClient создает подключение к RabbitMQ и открывает канал.
func NewClient(cfg ClientConfig) (*RabbitClient, error) {
	props := amqp091.Table{}
	if cfg.ConnectionName != "" {
		props["connection_name"] = cfg.ConnectionName
	}

	conn, err := amqp091.DialConfig(cfg.URL, amqp091.Config{
		Heartbeat:  cfg.Heartbeat,
		Dial:       amqp091.DefaultDial(cfg.ConnectTimeout),
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &RabbitClient{
		config: cfg,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Ping проверяет, живо ли соединение.
func (c *RabbitClient) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	return nil
}

// DeclareTopic объявляет exchange, очередь и ее dead-letter очередь.
// Для каждой очереди создается производная очередь "<queue>.dlq",
// привязанная к общему dead-letter exchange.
func (c *RabbitClient) DeclareTopic(exchange, queue, routingKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if err := c.ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}

	queueArgs := amqp091.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": queue + DLQSuffix,
	}
	if _, err := c.ch.QueueDeclare(queue, true, false, false, false, queueArgs); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := c.ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}

	dlq := queue + DLQSuffix
	if _, err := c.ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue %s: %w", dlq, err)
	}
	if err := c.ch.QueueBind(dlq, dlq, DLXName, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue %s: %w", dlq, err)
	}

	return nil
}

// Inspect возвращает глубину и количество консьюмеров очереди.
// Использует пассивное объявление: отсутствие очереди это ошибка.
func (c *RabbitClient) Inspect(queue string) (QueueInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, err := c.ch.QueueDeclarePassive(queue, true, false, false, false, nil)
	if err != nil {
		// После ошибки канал закрывается сервером, открываем новый.
		ch, chErr := c.conn.Channel()
		if chErr == nil {
			c.ch = ch
		}
		return QueueInfo{}, fmt.Errorf("failed to inspect queue %s: %w", queue, err)
	}

	return QueueInfo{Name: q.Name, Messages: q.Messages, Consumers: q.Consumers}, nil
}

// Purge очищает очередь и возвращает количество удаленных сообщений.
func (c *RabbitClient) Purge(queue string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.ch.QueuePurge(queue, false)
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue %s: %w", queue, err)
	}
	return n, nil
}

// Channel открывает отдельный канал поверх общего соединения.
func (c *RabbitClient) Channel() (*amqp091.Channel, error) {
	return c.conn.Channel()
}

// Close закрывает канал и соединение.
func (c *RabbitClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
