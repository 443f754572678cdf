package handlers

import (
	"time"

	"NotifyFlow/internal/domain"
	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID            uuid.UUID `json:"id"`
	Recipient     string    `json:"recipient"`
	Subject       string    `json:"subject"`
	OwnerType     string    `json:"owner_type,omitempty"`
	OwnerID       string    `json:"owner_id,omitempty"`
	Channel       string    `json:"channel"`
	Template      string    `json:"template"`
	CorrelationID string    `json:"correlation_id"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Recipient:     n.Recipient,
		Subject:       n.Subject,
		OwnerType:     n.OwnerType,
		OwnerID:       n.OwnerID,
		Channel:       n.Channel.String(),
		Template:      n.Template.String(),
		CorrelationID: n.CorrelationID,
		Status:        n.Status.String(),
		ErrorMessage:  n.ErrorMessage,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}
