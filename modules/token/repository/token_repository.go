package repository

import (
	"context"
	"database/sql"
	"time"

	"gameplan-api/core/database"
	"gameplan-api/core/logger"
	"gameplan-api/modules/token/entity"
)

type TokenRepositoryInterface interface {
	CreateToken(ctx context.Context, token *entity.MagicToken) error
	GetTokenByID(ctx context.Context, tokenID string) (*entity.MagicToken, error)
	MarkTokenUsed(ctx context.Context, tokenID string, usedAt time.Time) error
	RevokeToken(ctx context.Context, tokenID string) error

	CreateValidationAttempt(ctx context.Context, attempt *entity.ValidationAttempt) error
	GetValidationAttemptsBefore(ctx context.Context, cutoff time.Time, limit int) ([]entity.ValidationAttempt, error)
	DeleteValidationAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type TokenRepository struct {
	db database.IDatabase
}

func NewTokenRepository(db database.IDatabase) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) CreateToken(ctx context.Context, token *entity.MagicToken) error {
	query := `
		INSERT INTO magic_tokens (token_id, user_id, prompt_id, status, expires_at, usage_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())
	`
	err := r.db.ExecContext(ctx, query,
		token.TokenID, token.UserID, token.PromptID, token.Status, token.ExpiresAt)
	if err != nil {
		logger.Error("TokenRepository:CreateToken", err)
		return err
	}
	return nil
}

func (r *TokenRepository) GetTokenByID(ctx context.Context, tokenID string) (*entity.MagicToken, error) {
	query := `
		SELECT token_id, user_id, prompt_id, status, expires_at, usage_count, last_used_at, id, created_at, updated_at
		FROM magic_tokens WHERE token_id = $1
	`

	var token entity.MagicToken
	err := r.db.GetContext(ctx, &token, query, tokenID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("TokenRepository:GetTokenByID", err)
		return nil, err
	}

	return &token, nil
}

func (r *TokenRepository) MarkTokenUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	query := `
		UPDATE magic_tokens
		SET usage_count = usage_count + 1, last_used_at = $2, updated_at = NOW()
		WHERE token_id = $1
	`
	err := r.db.ExecContext(ctx, query, tokenID, usedAt)
	if err != nil {
		logger.Error("TokenRepository:MarkTokenUsed", err)
		return err
	}
	return nil
}

func (r *TokenRepository) RevokeToken(ctx context.Context, tokenID string) error {
	query := `
		UPDATE magic_tokens
		SET status = $2, updated_at = NOW()
		WHERE token_id = $1
	`
	err := r.db.ExecContext(ctx, query, tokenID, entity.TokenStatusRevoked)
	if err != nil {
		logger.Error("TokenRepository:RevokeToken", err)
		return err
	}
	return nil
}

func (r *TokenRepository) CreateValidationAttempt(ctx context.Context, attempt *entity.ValidationAttempt) error {
	query := `
		INSERT INTO validation_attempts (token_id, success, failure_category, ip_address, user_agent, grace_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	err := r.db.ExecContext(ctx, query,
		attempt.TokenID, attempt.Success, attempt.FailureCategory,
		attempt.IPAddress, attempt.UserAgent, attempt.GraceUsed, attempt.CreatedAt)
	if err != nil {
		logger.Error("TokenRepository:CreateValidationAttempt", err)
		return err
	}
	return nil
}

func (r *TokenRepository) GetValidationAttemptsBefore(ctx context.Context, cutoff time.Time, limit int) ([]entity.ValidationAttempt, error) {
	query := `
		SELECT id, token_id, success, failure_category, ip_address, user_agent, grace_used, created_at
		FROM validation_attempts
		WHERE created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	var attempts []entity.ValidationAttempt
	err := r.db.SelectContext(ctx, &attempts, query, cutoff, limit)
	if err != nil {
		logger.Error("TokenRepository:GetValidationAttemptsBefore", err)
		return nil, err
	}
	return attempts, nil
}

func (r *TokenRepository) DeleteValidationAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.NamedExecContext(ctx,
		`DELETE FROM validation_attempts WHERE created_at < :cutoff`,
		map[string]interface{}{"cutoff": cutoff})
	if err != nil {
		logger.Error("TokenRepository:DeleteValidationAttemptsBefore", err)
		return 0, err
	}
	return result.RowsAffected()
}
