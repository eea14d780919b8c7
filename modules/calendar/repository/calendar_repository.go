package repository

import (
	"context"
	"database/sql"

	"gameplan-api/core/database"
	"gameplan-api/core/logger"
	"gameplan-api/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CalendarRepositoryInterface interface {
	GetConnectionByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error)
	GetActiveConnectionsByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]entity.CalendarConnection, error)
	UpdateConnectionToken(ctx context.Context, conn *entity.CalendarConnection) error
}

type CalendarRepository struct {
	db database.IDatabase
}

func NewCalendarRepository(db database.IDatabase) *CalendarRepository {
	return &CalendarRepository{db: db}
}

func (r *CalendarRepository) GetConnectionByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error) {
	query := `
		SELECT * FROM calendar_connections
		WHERE user_id = $1 AND provider = $2 AND is_active = true
	`

	var conn entity.CalendarConnection
	err := r.db.GetContext(ctx, &conn, query, userID, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("CalendarRepository:GetConnectionByUserAndProvider", err)
		return nil, err
	}

	return &conn, nil
}

func (r *CalendarRepository) GetActiveConnectionsByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]entity.CalendarConnection, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT * FROM calendar_connections
		WHERE user_id IN (?) AND is_active = true
	`, userIDs)
	if err != nil {
		return nil, err
	}

	query = r.db.SQLx().Rebind(query)

	var connections []entity.CalendarConnection
	if err := r.db.SelectContext(ctx, &connections, query, args...); err != nil {
		logger.Error("CalendarRepository:GetActiveConnectionsByUserIDs", err)
		return nil, err
	}

	return connections, nil
}

func (r *CalendarRepository) UpdateConnectionToken(ctx context.Context, conn *entity.CalendarConnection) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $3, token_expires_at = $4, updated_at = NOW()
		WHERE user_id = $1 AND provider = $2
	`
	err := r.db.ExecContext(ctx, query, conn.UserID, conn.Provider, conn.AccessToken, conn.TokenExpiresAt)
	if err != nil {
		logger.Error("CalendarRepository:UpdateConnectionToken", err)
		return err
	}
	return nil
}
