package orchestrator

import (
	"context"
	"fmt"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
	"github.com/wb-go/wbf/zlog"
)

// ProviderFactory выдает провайдера по тегу канала.
type ProviderFactory interface {
	Get(ch contract.Channel) (domain.ChannelProvider, error)
}

// Orchestrator разворачивает один запрос по всем запрошенным каналам.
// Оркестратор не владеет никаким состоянием: он чистое преобразование
// запроса в вызовы вендоров и квитанции.
type Orchestrator struct {
	factory  ProviderFactory
	receipts domain.ReceiptPublisher
}

// New создает оркестратора.
func New(factory ProviderFactory, receipts domain.ReceiptPublisher) *Orchestrator {
	return &Orchestrator{
		factory:  factory,
		receipts: receipts,
	}
}

// Handle обрабатывает запрос: для каждого канала конверта резолвит
// провайдера и вызывает его. Ошибка одного канала не мешает попыткам
// по остальным каналам. final сообщает, что это последняя доставка
// сообщения и повторов больше не будет.
//
// Возвращаемая ошибка управляет судьбой сообщения: nil если хотя бы
// один канал отработал, неустранимая ошибка если все каналы упали
// по конфигурации или шаблону, обычная ошибка если остались временные
// сбои и повтор имеет смысл. Пока есть хотя бы один временный сбой,
// возвращаемая ошибка не оборачивает неустранимую причину: иначе
// сообщение ушло бы в dead-letter очередь вместо повтора.
func (o *Orchestrator) Handle(ctx context.Context, req contract.Request, final bool) error {
	var (
		succeeded     int
		lastErr       error
		lastTransient error
	)

	for _, ch := range req.Envelope.Channels {
		err := o.processChannel(ctx, ch, req, final)
		if err == nil {
			succeeded++
			continue
		}

		lastErr = err
		if !domain.IsPermanent(err) {
			lastTransient = err
		}

		zlog.Logger.Error().
			Err(err).
			Str("correlation_id", req.Envelope.CorrelationID).
			Str("channel", ch.String()).
			Bool("permanent", domain.IsPermanent(err)).
			Msg("channel processing failed")
	}

	if succeeded > 0 {
		return nil
	}
	if lastErr == nil {
		return nil
	}
	if lastTransient == nil {
		// Все каналы упали без шанса на повтор.
		return lastErr
	}
	return fmt.Errorf("all channels failed: %w", lastTransient)
}

// processChannel обрабатывает один канал и публикует квитанцию о результате.
func (o *Orchestrator) processChannel(ctx context.Context, ch contract.Channel, req contract.Request, final bool) error {
	provider, err := o.factory.Get(ch)
	if err != nil {
		o.reportFailure(ctx, ch, req, err, final)
		return err
	}

	result, err := provider.Process(ctx, req)
	if err != nil {
		o.reportFailure(ctx, ch, req, err, final)
		return err
	}

	receipt, err := contract.NewReceipt(
		req.Envelope.CorrelationID, ch, contract.StatusDelivered, req.Envelope.To, "")
	if err != nil {
		return err
	}
	for k, v := range result.Details {
		receipt = receipt.WithDetail(k, v)
	}

	if err := o.receipts.Publish(ctx, receipt); err != nil {
		// Доставка состоялась, но продюсер о ней не узнает: повтор
		// сообщения приведет к дублю отправки, поэтому ошибку
		// публикации квитанции не превращаем в повтор.
		zlog.Logger.Error().
			Err(err).
			Str("correlation_id", req.Envelope.CorrelationID).
			Str("channel", ch.String()).
			Msg("failed to publish delivery receipt")
	}
	return nil
}

// reportFailure публикует квитанцию FAILED только когда исход канала
// окончателен: для неустранимых ошибок сразу, для временных только на
// последней попытке. Ранняя квитанция о временном сбое терминализировала
// бы запись уведомления до того, как повтор успеет доставить сообщение.
func (o *Orchestrator) reportFailure(ctx context.Context, ch contract.Channel, req contract.Request, cause error, final bool) {
	if !domain.IsPermanent(cause) && !final {
		zlog.Logger.Debug().
			Str("correlation_id", req.Envelope.CorrelationID).
			Str("channel", ch.String()).
			Msg("transient channel failure, receipt deferred until retries are exhausted")
		return
	}
	o.publishFailure(ctx, ch, req, cause)
}

// publishFailure публикует квитанцию о неуспехе канала.
func (o *Orchestrator) publishFailure(ctx context.Context, ch contract.Channel, req contract.Request, cause error) {
	receipt, err := contract.NewReceipt(
		req.Envelope.CorrelationID, ch, contract.StatusFailed, req.Envelope.To, cause.Error())
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to build failure receipt")
		return
	}

	if err := o.receipts.Publish(ctx, receipt); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("correlation_id", req.Envelope.CorrelationID).
			Str("channel", ch.String()).
			Msg("failed to publish failure receipt")
	}
}
