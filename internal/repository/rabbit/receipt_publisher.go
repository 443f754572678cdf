package rabbit

import (
	"context"
	"fmt"

	"NotifyFlow/internal/contract"
	"NotifyFlow/pkg/rabbitmq"
	"github.com/wb-go/wbf/zlog"
)

// ReceiptPublisher публикует квитанции о доставке обратно в очередь
// квитанций продюсера. Квитанция несет correlation id исходного запроса.
type ReceiptPublisher struct {
	publisher  *rabbitmq.Publisher
	routingKey string
}

// NewReceiptPublisher создает публикатора квитанций.
func NewReceiptPublisher(client *rabbitmq.RabbitClient, exchange, routingKey string) *ReceiptPublisher {
	return &ReceiptPublisher{
		publisher:  rabbitmq.NewPublisher(client, exchange, "application/json"),
		routingKey: routingKey,
	}
}

// Publish сериализует квитанцию и публикует ее.
func (p *ReceiptPublisher) Publish(ctx context.Context, receipt contract.DeliveryReceipt) error {
	body, err := contract.EncodeReceipt(receipt)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	err = p.publisher.Publish(ctx, body, p.routingKey,
		rabbitmq.WithCorrelationID(receipt.CorrelationID),
		rabbitmq.WithMessageID(receipt.EventID),
	)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("correlation_id", receipt.CorrelationID).
			Str("channel", receipt.Channel.String()).
			Msg("failed to publish delivery receipt")
		return fmt.Errorf("failed to publish receipt: %w", err)
	}

	return nil
}
