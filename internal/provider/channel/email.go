package channel

import (
	"context"
	"time"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
	"NotifyFlow/internal/provider/vendor"
	"github.com/wb-go/wbf/zlog"
)

// EmailProvider провайдер канала email: рендерит шаблон, собирает
// модель отправки и делегирует активному вендору.
type EmailProvider struct {
	renderer domain.Renderer
	vendors  *vendor.Registry[vendor.EmailVendor]
	from     string
	timeout  time.Duration
}

// NewEmailProvider создает провайдера канала email.
// from это отправитель по умолчанию из конфигурации канала.
func NewEmailProvider(renderer domain.Renderer, vendors *vendor.Registry[vendor.EmailVendor],
	from string, timeout time.Duration) *EmailProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &EmailProvider{
		renderer: renderer,
		vendors:  vendors,
		from:     from,
		timeout:  timeout,
	}
}

// Channel возвращает тег канала.
func (p *EmailProvider) Channel() contract.Channel {
	return contract.ChannelEmail
}

// Process рендерит разметку, проверяет конфигурацию отправителя и
// отправляет письмо через активного вендора. Отсутствие отправителя
// по умолчанию это ошибка конфигурации без повтора.
func (p *EmailProvider) Process(ctx context.Context, req contract.Request) (*domain.DispatchResult, error) {
	html, err := p.renderer.RenderHTML(req.Envelope.Template, req.Payload)
	if err != nil {
		return nil, err
	}

	if p.from == "" {
		return nil, domain.Permanent(domain.ErrMissingSender)
	}

	msg := vendor.EmailMessage{
		From:     p.from,
		To:       req.Envelope.To,
		Subject:  req.Envelope.Subject,
		HTMLBody: html,
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
		Msg("email dispatched")

	return &domain.DispatchResult{
		Vendor:  v.Name(),
		Details: map[string]string{"vendor": v.Name()},
	}, nil
}
