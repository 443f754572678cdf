package contract

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Version текущая версия контракта сообщений.
const Version = "1"

type Channel string

// String возвращает строковое представление канала.
func (c Channel) String() string {
	return string(c)
}

// IsValid проверяет, является ли канал валидным.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS:
		return true
	default:
		return false
	}
}

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type TemplateID string

// String возвращает строковое представление идентификатора шаблона.
func (t TemplateID) String() string {
	return string(t)
}

const (
	TemplateWelcome      TemplateID = "WELCOME"
	TemplateOrderEvent   TemplateID = "ORDER_EVENT"
	TemplatePaymentEvent TemplateID = "PAYMENT_EVENT"
)

var (
	// ErrEmptyChannels ошибка пустого набора каналов.
	ErrEmptyChannels = errors.New("channels must not be empty")
	// ErrBlankCorrelationID ошибка пустого correlation id.
	ErrBlankCorrelationID = errors.New("correlation id must not be blank")
	// ErrEmptyRecipient ошибка пустого получателя.
	ErrEmptyRecipient = errors.New("recipient is empty")
	// ErrInvalidChannel ошибка невалидного канала.
	ErrInvalidChannel = errors.New("invalid channel")
)

// Envelope маршрутная обертка запроса на отправку уведомления.
// Correlation id стабилен между повторными доставками и связывает
// запрос с его квитанцией о доставке.
type Envelope struct {
	To            string     `json:"to"`
	Subject       string     `json:"subject"`
	Template      TemplateID `json:"template"`
	Channels      []Channel  `json:"channels"`
	CorrelationID string     `json:"correlation_id"`
	MessageID     string     `json:"message_id"`
	Version       string     `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewEnvelope создает конверт и проверяет его инварианты.
func NewEnvelope(to, subject string, template TemplateID, channels []Channel, correlationID string) (Envelope, error) {
	e := Envelope{
		To:            to,
		Subject:       subject,
		Template:      template,
		Channels:      channels,
		CorrelationID: correlationID,
		MessageID:     uuid.New().String(),
		Version:       Version,
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Validate проверяет инварианты конверта: непустой набор каналов,
// непустой correlation id, валидность каждого канала.
func (e Envelope) Validate() error {
	if len(e.Channels) == 0 {
		return ErrEmptyChannels
	}
	if strings.TrimSpace(e.CorrelationID) == "" {
		return ErrBlankCorrelationID
	}
	if e.To == "" {
		return ErrEmptyRecipient
	}
	for _, ch := range e.Channels {
		if !ch.IsValid() {
			return ErrInvalidChannel
		}
	}
	return nil
}
