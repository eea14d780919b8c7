package repository

import (
	"context"
	"time"

	"gameplan-api/core/database"
	"gameplan-api/core/logger"
	"gameplan-api/modules/availability/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ResponseRepositoryInterface interface {
	UpsertResponse(ctx context.Context, response *entity.Response) error
	GetSubmittedResponses(ctx context.Context, promptID uuid.UUID) ([]entity.Response, error)
	HasSubmitted(ctx context.Context, promptID, userID uuid.UUID) (bool, error)
	GetUserIDsNeedingReminder(ctx context.Context, promptID, groupID uuid.UUID, cooldown time.Duration) ([]uuid.UUID, error)
	MarkReminded(ctx context.Context, promptID uuid.UUID, userIDs []uuid.UUID, at time.Time) error
}

type ResponseRepository struct {
	db database.IDatabase
}

func NewResponseRepository(db database.IDatabase) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// UpsertResponse stores a submission. Concurrent submissions for the same
// (prompt, user) both pass the read check; the unique constraint decides the
// insert and the loser lands on the update path. No application lock needed.
func (r *ResponseRepository) UpsertResponse(ctx context.Context, response *entity.Response) error {
	query := `
		INSERT INTO responses (prompt_id, user_id, time_slots, user_timezone, is_unavailable,
		                       submitted_at, token_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (prompt_id, user_id) DO UPDATE
		SET time_slots = $3, user_timezone = $4, is_unavailable = $5,
		    submitted_at = $6, token_id = $7, updated_at = NOW()
	`

	err := r.db.ExecContext(ctx, query,
		response.PromptID, response.UserID, response.TimeSlots, response.UserTimezone,
		response.IsUnavailable, response.SubmittedAt, response.TokenID)
	if err != nil {
		logger.Error("ResponseRepository:UpsertResponse", err)
		return err
	}
	return nil
}

// GetSubmittedResponses returns actual submissions, skipping reminder stubs.
func (r *ResponseRepository) GetSubmittedResponses(ctx context.Context, promptID uuid.UUID) ([]entity.Response, error) {
	query := `
		SELECT prompt_id, user_id, time_slots, user_timezone, is_unavailable,
		       submitted_at, token_id, last_reminded_at, id, created_at, updated_at
		FROM responses
		WHERE prompt_id = $1 AND submitted_at IS NOT NULL
		ORDER BY submitted_at
	`

	var responses []entity.Response
	err := r.db.SelectContext(ctx, &responses, query, promptID)
	if err != nil {
		logger.Error("ResponseRepository:GetSubmittedResponses", err)
		return nil, err
	}
	return responses, nil
}

func (r *ResponseRepository) HasSubmitted(ctx context.Context, promptID, userID uuid.UUID) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM responses
		WHERE prompt_id = $1 AND user_id = $2 AND submitted_at IS NOT NULL
	`
	err := r.db.GetContext(ctx, &count, query, promptID, userID)
	if err != nil {
		logger.Error("ResponseRepository:HasSubmitted", err)
		return false, err
	}
	return count > 0, nil
}

// GetUserIDsNeedingReminder returns group members who have not submitted and
// whose last reminder (if any) is older than the cooldown.
func (r *ResponseRepository) GetUserIDsNeedingReminder(ctx context.Context, promptID, groupID uuid.UUID, cooldown time.Duration) ([]uuid.UUID, error) {
	query := `
		SELECT gm.user_id
		FROM group_members gm
		LEFT JOIN responses resp ON resp.prompt_id = $1 AND resp.user_id = gm.user_id
		WHERE gm.group_id = $2
		  AND resp.submitted_at IS NULL
		  AND (resp.last_reminded_at IS NULL OR resp.last_reminded_at < $3)
	`

	cutoff := time.Now().Add(-cooldown)

	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query, promptID, groupID, cutoff)
	if err != nil {
		logger.Error("ResponseRepository:GetUserIDsNeedingReminder", err)
		return nil, err
	}
	return ids, nil
}

// MarkReminded stamps the reminder cooldown, creating tracking stubs for
// members who have no response row yet.
func (r *ResponseRepository) MarkReminded(ctx context.Context, promptID uuid.UUID, userIDs []uuid.UUID, at time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO responses (prompt_id, user_id, time_slots, user_timezone, is_unavailable,
		                       last_reminded_at, created_at, updated_at)
		SELECT $1, uid, '[]'::jsonb, '', false, $3, NOW(), NOW()
		FROM unnest($2::uuid[]) AS uid
		ON CONFLICT (prompt_id, user_id) DO UPDATE
		SET last_reminded_at = $3, updated_at = NOW()
	`

	err := r.db.ExecContext(ctx, query, promptID, pq.Array(userIDs), at)
	if err != nil {
		logger.Error("ResponseRepository:MarkReminded", err)
		return err
	}
	return nil
}
