package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

const cacheKeyPrefix = "notification:"

// NotificationService продюсерская сторона: создает запись уведомления,
// публикует запрос оркестратору и применяет квитанции о доставке.
// Запись создается в статусе pending до публикации; статус меняется
// только по квитанции с совпадающим correlation id.
type NotificationService struct {
	repo            domain.NotificationRepository
	publisher       domain.RequestPublisher
	cache           domain.StatusCache
	cacheExpiration time.Duration
}

// NewNotificationService создает сервис уведомлений.
func NewNotificationService(
	repo domain.NotificationRepository,
	publisher domain.RequestPublisher,
	cache domain.StatusCache,
	cacheExpiration time.Duration) *NotificationService {
	return &NotificationService{
		repo:            repo,
		publisher:       publisher,
		cache:           cache,
		cacheExpiration: cacheExpiration,
	}
}

// CreateNotification создает запись уведомления и публикует запрос.
// Вставка записи и публикация это две отдельные операции: при ошибке
// публикации запись помечается failed с причиной, чтобы не зависнуть
// в pending без сообщения в брокере.
func (s *NotificationService) CreateNotification(ctx context.Context,
	params domain.CreateNotificationParams) (*domain.Notification, error) {
	op := "CreateNotification:"

	if len(params.Channels) == 0 {
		zlog.Logger.Warn().Msgf("%s empty channel set", op)
		return nil, contract.ErrEmptyChannels
	}
	for _, ch := range params.Channels {
		if !ch.IsValid() {
			zlog.Logger.Warn().Msgf("%s notification (channel = %s) is invalid", op, ch.String())
			return nil, contract.ErrInvalidChannel
		}
	}
	if params.Recipient == "" {
		zlog.Logger.Warn().Msgf("%s recipient is empty", op)
		return nil, contract.ErrEmptyRecipient
	}
	if params.Payload == nil {
		return nil, fmt.Errorf("%s payload is required", op)
	}

	correlationID := uuid.New().String()

	envelope, err := contract.NewEnvelope(
		params.Recipient, params.Subject, params.Template, params.Channels, correlationID)
	if err != nil {
		return nil, err
	}

	n, err := s.repo.Create(ctx, domain.CreateParams{
		Recipient:     params.Recipient,
		Subject:       params.Subject,
		OwnerType:     params.OwnerType,
		OwnerID:       params.OwnerID,
		Channel:       params.Channels[0].String(),
		Template:      params.Template.String(),
		CorrelationID: correlationID,
		Status:        domain.StatusPending,
	})
	if err != nil {
		zlog.Logger.Error().Msgf("%s failed to create notification: %v", op, err)
		return nil, err
	}

	if err := s.marshalAndSet(ctx, n); err != nil {
		return nil, err
	}

	err = s.publisher.Publish(ctx, contract.Request{Envelope: envelope, Payload: params.Payload})
	if err != nil {
		zlog.Logger.Error().Msgf("%s failed to publish request: %v", op, err)
		if _, markErr := s.repo.MarkFailed(ctx, correlationID, err.Error()); markErr != nil {
			zlog.Logger.Error().Msgf("%s failed to mark notification failed: %v", op, markErr)
		}
		n.Status = domain.StatusFailed
		n.ErrorMessage = err.Error()
		_ = s.marshalAndSet(ctx, n)
		return nil, err
	}

	zlog.Logger.Debug().Msgf("%s notification created, correlation_id:%s", op, correlationID)
	return n, nil
}

// GetByCorrelationID получает уведомление: сначала из кеша, при промахе
// из базы с обновлением кеша.
func (s *NotificationService) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.Notification, error) {
	cached, err := s.cache.Get(ctx, cacheKeyPrefix+correlationID)
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Msgf("failed to fetch notification from cache: %v", err)
		return nil, err
	}

	if errors.Is(err, redis.Nil) {
		n, err := s.repo.GetByCorrelationID(ctx, correlationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				zlog.Logger.Warn().Msgf("notification (correlation_id = %s) not found", correlationID)
				return nil, domain.ErrNotFound
			}
			return nil, err
		}

		if err := s.marshalAndSet(ctx, n); err != nil {
			zlog.Logger.Error().Msgf("%s failed to cache notification: %v", correlationID, err)
			return nil, err
		}
		return n, nil
	}

	var n *domain.Notification
	if err := json.Unmarshal([]byte(cached), &n); err != nil {
		zlog.Logger.Error().Err(err).Msgf("%s: failed to unmarshal cached notification", correlationID)
		return s.repo.GetByCorrelationID(ctx, correlationID)
	}
	return n, nil
}

// ApplyReceipt применяет квитанцию о доставке к записи уведомления.
// DELIVERED переводит запись в sent, FAILED и BOUNCED в failed,
// остальные статусы только логируются. Неизвестный correlation id
// это ошибка: квитанция не должна быть молча потеряна.
func (s *NotificationService) ApplyReceipt(ctx context.Context, receipt contract.DeliveryReceipt) error {
	op := "ApplyReceipt:"

	switch {
	case receipt.Status == contract.StatusDelivered:
		transitioned, err := s.repo.MarkSent(ctx, receipt.CorrelationID)
		if err != nil {
			return err
		}
		if !transitioned {
			// Повторная доставка квитанции: запись уже терминальна.
			zlog.Logger.Debug().Msgf("%s notification %s already terminal, receipt ignored",
				op, receipt.CorrelationID)
			return nil
		}
		s.refreshCache(ctx, receipt.CorrelationID)
		zlog.Logger.Info().Msgf("%s notification %s marked sent via channel %s",
			op, receipt.CorrelationID, receipt.Channel)
		return nil

	case receipt.Status.IsFailure():
		reason := receipt.ErrorMessage
		if reason == "" {
			reason = "delivery " + receipt.Status.String()
		}
		transitioned, err := s.repo.MarkFailed(ctx, receipt.CorrelationID, reason)
		if err != nil {
			return err
		}
		if !transitioned {
			zlog.Logger.Debug().Msgf("%s notification %s already terminal, receipt ignored",
				op, receipt.CorrelationID)
			return nil
		}
		s.refreshCache(ctx, receipt.CorrelationID)
		zlog.Logger.Warn().Msgf("%s notification %s marked failed: %s",
			op, receipt.CorrelationID, reason)
		return nil

	default:
		// OPENED/CLICKED не меняют статус отправки.
		zlog.Logger.Info().Msgf("%s engagement receipt %s for %s, no status transition",
			op, receipt.Status, receipt.CorrelationID)
		return nil
	}
}

// refreshCache перечитывает запись из базы и обновляет кеш.
func (s *NotificationService) refreshCache(ctx context.Context, correlationID string) {
	n, err := s.repo.GetByCorrelationID(ctx, correlationID)
	if err != nil {
		zlog.Logger.Error().Msgf("failed to refresh cache for %s: %v", correlationID, err)
		return
	}
	if err := s.marshalAndSet(ctx, n); err != nil {
		zlog.Logger.Error().Msgf("failed to refresh cache for %s: %v", correlationID, err)
	}
}

func (s *NotificationService) marshalAndSet(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		zlog.Logger.Error().Msgf("%s failed to marshal notification: %v", n.CorrelationID, err)
		return err
	}
	err = s.cache.SetWithExpiration(ctx, cacheKeyPrefix+n.CorrelationID, data, s.cacheExpiration)
	if err != nil {
		zlog.Logger.Error().Msgf("%s failed to set notification expiry: %v", n.CorrelationID, err)
		return err
	}
	return nil
}
