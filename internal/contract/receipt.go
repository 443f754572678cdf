package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus статус доставки, сообщаемый квитанцией.
type DeliveryStatus string

// String возвращает строковое представление статуса.
func (s DeliveryStatus) String() string {
	return string(s)
}

// IsValid проверяет, является ли статус валидным.
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case StatusDelivered, StatusFailed, StatusBounced, StatusOpened, StatusClicked:
		return true
	default:
		return false
	}
}

// IsFailure сообщает, означает ли статус неуспешную доставку.
func (s DeliveryStatus) IsFailure() bool {
	return s == StatusFailed || s == StatusBounced
}

const (
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusFailed    DeliveryStatus = "FAILED"
	StatusBounced   DeliveryStatus = "BOUNCED"
	StatusOpened    DeliveryStatus = "OPENED"
	StatusClicked   DeliveryStatus = "CLICKED"
)

var (
	// ErrInvalidDeliveryStatus ошибка невалидного статуса доставки.
	ErrInvalidDeliveryStatus = errors.New("invalid delivery status")
	// ErrMissingErrorMessage для статуса FAILED сообщение об ошибке обязательно.
	ErrMissingErrorMessage = errors.New("error message is required for FAILED status")
)

// DeliveryReceipt квитанция о доставке уведомления по одному каналу.
// Несет correlation id исходного запроса.
type DeliveryReceipt struct {
	CorrelationID   string            `json:"correlation_id"`
	Channel         Channel           `json:"channel"`
	Status          DeliveryStatus    `json:"status"`
	Recipient       string            `json:"recipient"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	ProviderDetails map[string]string `json:"provider_details,omitempty"`
	EventID         string            `json:"event_id"`
	Version         string            `json:"version"`
	Timestamp       time.Time         `json:"timestamp"`
}

// NewReceipt создает квитанцию и проверяет ее инварианты.
func NewReceipt(correlationID string, channel Channel, status DeliveryStatus,
	recipient, errorMessage string) (DeliveryReceipt, error) {
	r := DeliveryReceipt{
		CorrelationID: correlationID,
		Channel:       channel,
		Status:        status,
		Recipient:     recipient,
		ErrorMessage:  errorMessage,
		EventID:       uuid.New().String(),
		Version:       Version,
		Timestamp:     time.Now().UTC(),
	}
	if err := r.Validate(); err != nil {
		return DeliveryReceipt{}, err
	}
	return r, nil
}

// WithDetail добавляет пару ключ-значение в детали провайдера.
func (r DeliveryReceipt) WithDetail(key, value string) DeliveryReceipt {
	if r.ProviderDetails == nil {
		r.ProviderDetails = make(map[string]string)
	}
	r.ProviderDetails[key] = value
	return r
}

// Validate проверяет инварианты квитанции.
func (r DeliveryReceipt) Validate() error {
	if strings.TrimSpace(r.CorrelationID) == "" {
		return ErrBlankCorrelationID
	}
	if !r.Channel.IsValid() {
		return ErrInvalidChannel
	}
	if !r.Status.IsValid() {
		return ErrInvalidDeliveryStatus
	}
	if r.Status == StatusFailed && strings.TrimSpace(r.ErrorMessage) == "" {
		return ErrMissingErrorMessage
	}
	return nil
}

// EncodeReceipt сериализует квитанцию в wire-формат.
func EncodeReceipt(r DeliveryReceipt) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid receipt: %w", err)
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal receipt: %w", err)
	}
	return body, nil
}

// DecodeReceipt разбирает wire-формат квитанции.
func DecodeReceipt(body []byte) (DeliveryReceipt, error) {
	var r DeliveryReceipt
	if err := json.Unmarshal(body, &r); err != nil {
		return DeliveryReceipt{}, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}
	if err := r.Validate(); err != nil {
		return DeliveryReceipt{}, err
	}
	return r, nil
}
