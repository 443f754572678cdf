package contract

import (
	"encoding/json"
	"fmt"
)

// PayloadType дискриминатор варианта полезной нагрузки в wire-формате.
type PayloadType string

const (
	PayloadWelcome      PayloadType = "welcome"
	PayloadOrderEvent   PayloadType = "order_event"
	PayloadPaymentEvent PayloadType = "payment_event"
)

// Payload закрытое множество вариантов полезной нагрузки уведомления.
// Каждый вариант несет только данные, нужные его шаблону.
type Payload interface {
	PayloadType() PayloadType
}

// WelcomePayload данные приветственного уведомления.
type WelcomePayload struct {
	UserName       string `json:"user_name"`
	ActivationLink string `json:"activation_link"`
}

func (WelcomePayload) PayloadType() PayloadType { return PayloadWelcome }

// OrderEventPayload данные уведомления о событии заказа.
type OrderEventPayload struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

func (OrderEventPayload) PayloadType() PayloadType { return PayloadOrderEvent }

// PaymentEventPayload данные уведомления о событии платежа.
type PaymentEventPayload struct {
	PaymentID     string `json:"payment_id"`
	OrderID       string `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

func (PaymentEventPayload) PayloadType() PayloadType { return PayloadPaymentEvent }

// Request запрос на отправку уведомления: конверт плюс полезная нагрузка.
type Request struct {
	Envelope Envelope
	Payload  Payload
}

// requestWire wire-представление запроса с явным дискриминатором.
type requestWire struct {
	Envelope    Envelope        `json:"envelope"`
	PayloadType PayloadType     `json:"payload_type"`
	Payload     json.RawMessage `json:"payload"`
}

// EncodeRequest сериализует запрос в wire-формат.
func EncodeRequest(r Request) ([]byte, error) {
	if err := r.Envelope.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	if r.Payload == nil {
		return nil, fmt.Errorf("request payload is nil")
	}

	rawPayload, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	body, err := json.Marshal(requestWire{
		Envelope:    r.Envelope,
		PayloadType: r.Payload.PayloadType(),
		Payload:     rawPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return body, nil
}

// DecodeRequest разбирает wire-формат запроса. Диспетчеризация варианта
// полезной нагрузки идет по явному дискриминатору; неизвестный
// дискриминатор это ошибка контракта, повтор не имеет смысла.
func DecodeRequest(body []byte) (Request, error) {
	var wire requestWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return Request{}, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	if err := wire.Envelope.Validate(); err != nil {
		return Request{}, fmt.Errorf("invalid envelope: %w", err)
	}

	payload, err := DecodePayload(wire.PayloadType, wire.Payload)
	if err != nil {
		return Request{}, err
	}

	return Request{Envelope: wire.Envelope, Payload: payload}, nil
}

// DecodePayload разбирает один вариант полезной нагрузки по дискриминатору.
func DecodePayload(t PayloadType, raw json.RawMessage) (Payload, error) {
	switch t {
	case PayloadWelcome:
		var p WelcomePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal welcome payload: %w", err)
		}
		return p, nil
	case PayloadOrderEvent:
		var p OrderEventPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order event payload: %w", err)
		}
		return p, nil
	case PayloadPaymentEvent:
		var p PaymentEventPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment event payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown payload type %q", t)
	}
}
