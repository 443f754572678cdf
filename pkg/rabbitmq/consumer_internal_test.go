package rabbitmq

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

// fakeAcknowledger подменяет подтверждения канала и записывает вызовы.
type fakeAcknowledger struct {
	acks  int
	nacks []bool // значения requeue
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acks++
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacks = append(a.nacks, requeue)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return nil
}

// fakePublisher записывает переизданные сообщения.
type fakePublisher struct {
	err       error
	keys      []string
	published []amqp091.Publishing
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.published = append(p.published, msg)
	return nil
}

func newTestConsumer(handler HandlerFunc) *Consumer {
	return NewConsumer(nil, ConsumerConfig{Queue: "notification.request", MaxRetries: 3}, handler)
}

func delivery(ack *fakeAcknowledger, retries int64) amqp091.Delivery {
	msg := amqp091.Delivery{
		Acknowledger:  ack,
		CorrelationId: "corr-1",
		Body:          []byte(`{}`),
	}
	if retries > 0 {
		msg.Headers = amqp091.Table{retryCountHeader: retries}
	}
	return msg
}

func TestConsumerHandle_SuccessAcks(t *testing.T) {
	ack := new(fakeAcknowledger)
	pub := new(fakePublisher)
	c := newTestConsumer(func(ctx context.Context, msg amqp091.Delivery) error {
		return nil
	})

	c.handle(context.Background(), pub, delivery(ack, 0))

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, ack.nacks)
	assert.Empty(t, pub.published)
}

func TestConsumerHandle_RejectGoesToDeadLetter(t *testing.T) {
	// Помеченная через Reject ошибка: без повтора, Nack без возврата,
	// дальше сообщение маршрутизирует dead-letter топология очереди.
	ack := new(fakeAcknowledger)
	pub := new(fakePublisher)
	c := newTestConsumer(func(ctx context.Context, msg amqp091.Delivery) error {
		return Reject(errors.New("malformed body"))
	})

	c.handle(context.Background(), pub, delivery(ack, 0))

	assert.Equal(t, 0, ack.acks)
	assert.Equal(t, []bool{false}, ack.nacks)
	assert.Empty(t, pub.published)
}

func TestConsumerHandle_TransientErrorRepublishesWithIncrement(t *testing.T) {
	// Временная ошибка при незаполненном лимите: копия переиздается в ту же
	// очередь с инкрементом счетчика, оригинал подтверждается.
	ack := new(fakeAcknowledger)
	pub := new(fakePublisher)
	c := newTestConsumer(func(ctx context.Context, msg amqp091.Delivery) error {
		return errors.New("dial tcp: i/o timeout")
	})

	c.handle(context.Background(), pub, delivery(ack, 1))

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, ack.nacks)
	if assert.Len(t, pub.published, 1) {
		assert.Equal(t, "notification.request", pub.keys[0])
		assert.Equal(t, int64(2), pub.published[0].Headers[retryCountHeader])
		assert.Equal(t, "corr-1", pub.published[0].CorrelationId)
	}
}

func TestConsumerHandle_RetryLimitExhaustedGoesToDeadLetter(t *testing.T) {
	ack := new(fakeAcknowledger)
	pub := new(fakePublisher)
	c := newTestConsumer(func(ctx context.Context, msg amqp091.Delivery) error {
		return errors.New("dial tcp: i/o timeout")
	})

	c.handle(context.Background(), pub, delivery(ack, 3))

	assert.Equal(t, 0, ack.acks)
	assert.Equal(t, []bool{false}, ack.nacks)
	assert.Empty(t, pub.published)
}

func TestConsumerHandle_RepublishFailureRequeues(t *testing.T) {
	// Переиздание не удалось: оригинал возвращается в очередь, чтобы
	// сообщение не потерялось.
	ack := new(fakeAcknowledger)
	pub := &fakePublisher{err: errors.New("channel closed")}
	c := newTestConsumer(func(ctx context.Context, msg amqp091.Delivery) error {
		return errors.New("dial tcp: i/o timeout")
	})

	c.handle(context.Background(), pub, delivery(ack, 0))

	assert.Equal(t, 0, ack.acks)
	assert.Equal(t, []bool{true}, ack.nacks)
}
