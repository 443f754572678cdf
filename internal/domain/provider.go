package domain

import (
	"context"

	"NotifyFlow/internal/contract"
)

// DispatchResult результат успешной отправки по одному каналу.
type DispatchResult struct {
	// Vendor имя вендора, через которого ушло сообщение.
	Vendor string
	// Details свободные детали провайдера для квитанции.
	Details map[string]string
}

// ChannelProvider стратегия отправки уведомления по одному каналу.
// Провайдер ничего не знает о других каналах.
type ChannelProvider interface {
	// Channel возвращает тег канала, который обслуживает провайдер
	Channel() contract.Channel
	// Process рендерит шаблон, собирает модель отправки и делегирует
	// активному вендору канала
	Process(ctx context.Context, req contract.Request) (*DispatchResult, error)
}

// Renderer интерфейс рендеринга шаблонов уведомлений.
type Renderer interface {
	// RenderHTML рендерит HTML-разметку по идентификатору шаблона
	RenderHTML(templateID contract.TemplateID, payload contract.Payload) (string, error)
	// RenderText рендерит текстовое представление для каналов без разметки
	RenderText(templateID contract.TemplateID, payload contract.Payload) (string, error)
}
