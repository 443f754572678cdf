package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service domain.NotificationService
	admin   domain.QueueAdmin
}

func NewHandlersSet(service domain.NotificationService, admin domain.QueueAdmin) *Handler {
	return &Handler{
		service: service,
		admin:   admin,
	}
}

type CreateRequest struct {
	Recipient   string          `json:"recipient" validate:"required"`
	Subject     string          `json:"subject" validate:"required"`
	OwnerType   string          `json:"owner_type"`
	OwnerID     string          `json:"owner_id"`
	Channels    []string        `json:"channels" validate:"required,min=1"`
	Template    string          `json:"template" validate:"required"`
	PayloadType string          `json:"payload_type" validate:"required"`
	Payload     json.RawMessage `json:"payload" validate:"required"`
}

var validate = validator.New()

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "обязательное поле"
	case "min":
		return "должно содержать хотя бы один элемент"
	default:
		return "некорректное значение"
	}
}

func (h *Handler) CreateNotificationHandler(c *gin.Context) {
	var req CreateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный JSON: " + err.Error()})
		return
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			errorsMap := make(map[string]string)
			for _, e := range verrs {
				errorsMap[e.Field()] = validationMessage(e)
			}

			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Ошибка валидации",
				"errors":  errorsMap,
			})
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный запрос: " + err.Error()})
		return
	}

	channels := make([]contract.Channel, 0, len(req.Channels))
	for _, raw := range req.Channels {
		ch := contract.Channel(raw)
		if !ch.IsValid() {
			c.JSON(http.StatusBadRequest,
				gin.H{"error": fmt.Sprintf("Канал отправки %s не поддерживается", raw)})
			return
		}
		channels = append(channels, ch)
	}

	payload, err := contract.DecodePayload(contract.PayloadType(req.PayloadType), req.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректная полезная нагрузка: " + err.Error()})
		return
	}

	params := domain.CreateNotificationParams{
		Recipient: req.Recipient,
		Subject:   req.Subject,
		OwnerType: req.OwnerType,
		OwnerID:   req.OwnerID,
		Channels:  channels,
		Template:  contract.TemplateID(req.Template),
		Payload:   payload,
	}

	n, err := h.service.CreateNotification(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": toResponse(n)})
}

func (h *Handler) GetNotificationHandler(c *gin.Context) {
	correlationID := c.Param("correlation_id")
	if correlationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "correlation_id is required"})
		return
	}

	n, err := h.service.GetByCorrelationID(c.Request.Context(), correlationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": toResponse(n)})
}

func (h *Handler) PurgeQueueHandler(c *gin.Context) {
	alias := c.Param("alias")
	if alias == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alias is required"})
		return
	}

	purged, err := h.admin.PurgeQueue(alias)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": gin.H{"alias": alias, "purged": purged}})
}

func (h *Handler) PurgeAllQueuesHandler(c *gin.Context) {
	purged, err := h.admin.PurgeAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": purged})
}
