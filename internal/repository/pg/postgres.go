package pg

import (
	"context"
	"database/sql"
	"errors"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// PostgresRepo структура для работы с PostgreSQL.
type PostgresRepo struct {
	DB *dbpg.DB
}

// NewPostgresRepo создает новый экземпляр PostgresRepo.
func NewPostgresRepo(db *dbpg.DB) *PostgresRepo {
	return &PostgresRepo{
		DB: db,
	}
}

// Create создает новое уведомление в базе данных.
func (p *PostgresRepo) Create(ctx context.Context, params domain.CreateParams) (*domain.Notification, error) {
	sqlQuery := `INSERT INTO notifications
 (recipient, subject, owner_type, owner_id, channel, template, correlation_id, status)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
 RETURNING id, created_at, updated_at`

	var result domain.Notification
	if err := p.DB.QueryRowContext(ctx, sqlQuery,
		params.Recipient, params.Subject, params.OwnerType, params.OwnerID,
		params.Channel, params.Template, params.CorrelationID, params.Status).Scan(
		&result.ID, &result.CreatedAt, &result.UpdatedAt); err != nil {
		zlog.Logger.Error().Err(err).Msg("Error scanning notification")
		return nil, err
	}

	result.Recipient = params.Recipient
	result.Subject = params.Subject
	result.OwnerType = params.OwnerType
	result.OwnerID = params.OwnerID
	result.Channel = contract.Channel(params.Channel)
	result.Template = contract.TemplateID(params.Template)
	result.CorrelationID = params.CorrelationID
	result.Status = params.Status

	zlog.Logger.Debug().
		Str("correlation_id", params.CorrelationID).
		Str("recipient", params.Recipient).
		Str("channel", params.Channel).
		Msg("notification created")

	return &result, nil
}

// GetByCorrelationID получает уведомление по correlation id.
func (p *PostgresRepo) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.Notification, error) {
	sqlQuery := `SELECT id, recipient, subject, owner_type, owner_id,
       channel, template, correlation_id, status,
       COALESCE(error_message, ''), created_at, updated_at
	FROM notifications WHERE correlation_id = $1 LIMIT 1`

	var result domain.Notification
	if err := p.DB.QueryRowContext(ctx, sqlQuery, correlationID).Scan(
		&result.ID, &result.Recipient, &result.Subject, &result.OwnerType, &result.OwnerID,
		&result.Channel, &result.Template, &result.CorrelationID, &result.Status,
		&result.ErrorMessage, &result.CreatedAt, &result.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		zlog.Logger.Error().Err(err).Msg("Error scan notification fields")
		return nil, err
	}

	return &result, nil
}

// MarkSent переводит уведомление pending -> sent.
// Переход защищен условием по статусу: повторная квитанция по уже
// терминальной записи ничего не меняет и возвращает false.
func (p *PostgresRepo) MarkSent(ctx context.Context, correlationID string) (bool, error) {
	sqlQuery := `UPDATE notifications SET status = $1, updated_at = NOW()
 WHERE correlation_id = $2 AND status = $3`

	r, err := p.DB.ExecContext(ctx, sqlQuery, domain.StatusSent, correlationID, domain.StatusPending)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error exec mark sent")
		return false, err
	}

	rows, _ := r.RowsAffected()
	if rows == 0 {
		return false, p.checkExists(ctx, correlationID)
	}
	return true, nil
}

// MarkFailed переводит уведомление pending -> failed с причиной.
func (p *PostgresRepo) MarkFailed(ctx context.Context, correlationID, reason string) (bool, error) {
	sqlQuery := `UPDATE notifications SET status = $1, error_message = $2, updated_at = NOW()
 WHERE correlation_id = $3 AND status = $4`

	r, err := p.DB.ExecContext(ctx, sqlQuery, domain.StatusFailed, reason, correlationID, domain.StatusPending)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Error exec mark failed")
		return false, err
	}

	rows, _ := r.RowsAffected()
	if rows == 0 {
		return false, p.checkExists(ctx, correlationID)
	}
	return true, nil
}

// checkExists различает отсутствующую запись и запись в терминальном
// статусе: первое это ErrNotFound, второе идемпотентный no-op.
func (p *PostgresRepo) checkExists(ctx context.Context, correlationID string) error {
	var exists bool
	err := p.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM notifications WHERE correlation_id = $1)`,
		correlationID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}
