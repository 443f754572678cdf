package renderer

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"sync"
	texttemplate "text/template"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
)

// TemplateRenderer хранит предкомпилированные шаблоны уведомлений
// по идентификатору. Полезная нагрузка запроса расплющивается в
// generic-контекст ключ-значение перед исполнением шаблона.
// Ошибка рендеринга неустранима: повторная доставка не поможет.
type TemplateRenderer struct {
	mu   sync.RWMutex
	html map[contract.TemplateID]*htmltemplate.Template
	text map[contract.TemplateID]*texttemplate.Template
}

// New создает рендерер со встроенными шаблонами.
func New() (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		html: make(map[contract.TemplateID]*htmltemplate.Template),
		text: make(map[contract.TemplateID]*texttemplate.Template),
	}

	defaults := map[contract.TemplateID]struct {
		html string
		text string
	}{
		contract.TemplateWelcome: {
			html: `<html><body><h1>Добро пожаловать, {{.user_name}}!</h1>` +
				`<p>Для активации аккаунта перейдите по <a href="{{.activation_link}}">ссылке</a>.</p></body></html>`,
			text: `Добро пожаловать, {{.user_name}}! Активация: {{.activation_link}}`,
		},
		contract.TemplateOrderEvent: {
			html: `<html><body><h1>Заказ {{.order_id}}</h1>` +
				`<p>Статус заказа: {{.order_status}}.</p><p>Сумма: {{.amount}} {{.currency}}.</p></body></html>`,
			text: `Заказ {{.order_id}}: {{.order_status}}, сумма {{.amount}} {{.currency}}`,
		},
		contract.TemplatePaymentEvent: {
			html: `<html><body><h1>Платеж {{.payment_id}}</h1>` +
				`<p>Платеж по заказу {{.order_id}}: {{.payment_status}}.</p>` +
				`<p>Сумма: {{.amount}} {{.currency}}.</p></body></html>`,
			text: `Платеж {{.payment_id}} по заказу {{.order_id}}: {{.payment_status}}, {{.amount}} {{.currency}}`,
		},
	}

	for id, tpl := range defaults {
		if err := r.Register(id, tpl.html, tpl.text); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register добавляет или заменяет шаблон для идентификатора.
func (r *TemplateRenderer) Register(id contract.TemplateID, htmlBody, textBody string) error {
	htmlTpl, err := htmltemplate.New(id.String()).Option("missingkey=error").Parse(htmlBody)
	if err != nil {
		return fmt.Errorf("failed to parse html template %s: %w", id, err)
	}
	textTpl, err := texttemplate.New(id.String()).Option("missingkey=error").Parse(textBody)
	if err != nil {
		return fmt.Errorf("failed to parse text template %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.html[id] = htmlTpl
	r.text[id] = textTpl
	return nil
}

// RenderHTML рендерит HTML-разметку по идентификатору шаблона.
func (r *TemplateRenderer) RenderHTML(id contract.TemplateID, payload contract.Payload) (string, error) {
	r.mu.RLock()
	tpl, ok := r.html[id]
	r.mu.RUnlock()
	if !ok {
		return "", domain.Permanent(fmt.Errorf("template %s not found", id))
	}

	context, err := flatten(payload)
	if err != nil {
		return "", domain.Permanent(err)
	}

	var out strings.Builder
	if err := tpl.Execute(&out, context); err != nil {
		return "", domain.Permanent(fmt.Errorf("failed to render template %s: %w", id, err))
	}
	return out.String(), nil
}

// RenderText рендерит текстовое представление для каналов без разметки.
func (r *TemplateRenderer) RenderText(id contract.TemplateID, payload contract.Payload) (string, error) {
	r.mu.RLock()
	tpl, ok := r.text[id]
	r.mu.RUnlock()
	if !ok {
		return "", domain.Permanent(fmt.Errorf("template %s not found", id))
	}

	context, err := flatten(payload)
	if err != nil {
		return "", domain.Permanent(err)
	}

	var out strings.Builder
	if err := tpl.Execute(&out, context); err != nil {
		return "", domain.Permanent(fmt.Errorf("failed to render template %s: %w", id, err))
	}
	return out.String(), nil
}

// flatten расплющивает полезную нагрузку в generic-контекст ключ-значение.
func flatten(payload contract.Payload) (map[string]interface{}, error) {
	if payload == nil {
		return nil, fmt.Errorf("payload is nil")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	context := make(map[string]interface{})
	if err := json.Unmarshal(data, &context); err != nil {
		return nil, fmt.Errorf("failed to flatten payload: %w", err)
	}
	return context, nil
}
