package channel

import (
	"context"
	"time"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
	"NotifyFlow/internal/provider/vendor"
	"github.com/wb-go/wbf/zlog"
)

// SMSProvider провайдер канала sms.
type SMSProvider struct {
	renderer domain.Renderer
	vendors  *vendor.Registry[vendor.SMSVendor]
	senderID string
	timeout  time.Duration
}

// NewSMSProvider создает провайдера канала sms.
// senderID это имя отправителя по умолчанию из конфигурации канала.
func NewSMSProvider(renderer domain.Renderer, vendors *vendor.Registry[vendor.SMSVendor],
	senderID string, timeout time.Duration) *SMSProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMSProvider{
		renderer: renderer,
		vendors:  vendors,
		senderID: senderID,
		timeout:  timeout,
	}
}

// Channel возвращает тег канала.
func (p *SMSProvider) Channel() contract.Channel {
	return contract.ChannelSMS
}

// Process рендерит текстовое тело и отправляет его через активного вендора.
func (p *SMSProvider) Process(ctx context.Context, req contract.Request) (*domain.DispatchResult, error) {
	body, err := p.renderer.RenderText(req.Envelope.Template, req.Payload)
	if err != nil {
		return nil, err
	}

	if p.senderID == "" {
		return nil, domain.Permanent(domain.ErrMissingSender)
	}

	msg := vendor.SMSMessage{
		From: p.senderID,
		To:   req.Envelope.To,
		Body: body,
	}

	v, err := p.vendors.Active()
	if err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := v.Send(sendCtx, msg); err != nil {
		return nil, err
	}

	zlog.Logger.Debug().
		Str("correlation_id", req.Envelope.CorrelationID).
		Str("to", msg.To).
		Str("vendor", v.Name()).
		Msg("sms dispatched")

	return &domain.DispatchResult{
		Vendor:  v.Name(),
		Details: map[string]string{"vendor": v.Name()},
	}, nil
}
