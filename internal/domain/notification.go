package domain

import (
	"time"

	"NotifyFlow/internal/contract"
	"github.com/google/uuid"
)

type DispatchStatus string

// String возвращает строковое представление статуса.
func (s DispatchStatus) String() string {
	return string(s)
}

// IsValid проверяет, является ли статус валидным.
func (s DispatchStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal сообщает, является ли статус терминальным.
// Из sent и failed переходов нет.
func (s DispatchStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

const (
	StatusPending DispatchStatus = "pending"
	StatusSent    DispatchStatus = "sent"
	StatusFailed  DispatchStatus = "failed"
)

// Notification запись об отправке уведомления на стороне продюсера.
// Создается в статусе pending до публикации запроса; переходит в sent
// или failed только по квитанции с совпадающим correlation id.
type Notification struct {
	ID            uuid.UUID
	Recipient     string
	Subject       string
	OwnerType     string
	OwnerID       string
	Channel       contract.Channel
	Template      contract.TemplateID
	CorrelationID string
	Status        DispatchStatus
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateNotificationParams параметры для создания уведомления.
type CreateNotificationParams struct {
	Recipient string
	Subject   string
	OwnerType string
	OwnerID   string
	Channels  []contract.Channel
	Template  contract.TemplateID
	Payload   contract.Payload
}
