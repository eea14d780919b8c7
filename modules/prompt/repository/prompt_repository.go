package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gameplan-api/core/database"
	"gameplan-api/core/logger"
	"gameplan-api/modules/prompt/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicatePrompt signals that a prompt already exists for the same
// (group, period) pair.
var ErrDuplicatePrompt = errors.New("a prompt for this group and period already exists")

type PromptRepositoryInterface interface {
	CreatePrompt(ctx context.Context, prompt *entity.Prompt) (*entity.Prompt, error)
	GetPromptByID(ctx context.Context, id uuid.UUID) (*entity.Prompt, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.PromptStatus, to entity.PromptStatus) (bool, error)
	UpdateDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) (bool, error)

	GetActivityByID(ctx context.Context, id uuid.UUID) (*entity.Activity, error)
	GetGroupMemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
	FilterExistingUserIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type PromptRepository struct {
	db database.IDatabase
}

func NewPromptRepository(db database.IDatabase) *PromptRepository {
	return &PromptRepository{db: db}
}

func (r *PromptRepository) CreatePrompt(ctx context.Context, prompt *entity.Prompt) (*entity.Prompt, error) {
	query := `
		INSERT INTO prompts (group_id, activity_id, deadline, status, dedupe_key,
		                     auto_schedule_enabled, blind_voting, custom_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING group_id, activity_id, deadline, status, dedupe_key,
		          auto_schedule_enabled, blind_voting, custom_message, id, created_at, updated_at
	`

	var created entity.Prompt
	err := r.db.GetContext(ctx, &created, query,
		prompt.GroupID, prompt.ActivityID, prompt.Deadline, prompt.Status, prompt.DedupeKey,
		prompt.AutoScheduleEnabled, prompt.BlindVoting, prompt.CustomMessage)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			// Unique (group_id, dedupe_key) violated: a prompt for this
			// period already exists.
			return nil, ErrDuplicatePrompt
		}
		logger.Error("PromptRepository:CreatePrompt", err)
		return nil, err
	}

	return &created, nil
}

func (r *PromptRepository) GetPromptByID(ctx context.Context, id uuid.UUID) (*entity.Prompt, error) {
	query := `
		SELECT group_id, activity_id, deadline, status, dedupe_key,
		       auto_schedule_enabled, blind_voting, custom_message, id, created_at, updated_at
		FROM prompts WHERE id = $1
	`

	var prompt entity.Prompt
	err := r.db.GetContext(ctx, &prompt, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("PromptRepository:GetPromptByID", err)
		return nil, err
	}

	return &prompt, nil
}

// TransitionStatus moves a prompt forward in its lifecycle. The update only
// applies when the current status is one of the allowed origins, so stale
// callers (a deadline job racing a manual close) become no-ops.
func (r *PromptRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.PromptStatus, to entity.PromptStatus) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	query := `
		UPDATE prompts SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`

	result, err := r.db.SQLx().ExecContext(ctx, query, id, to, pq.Array(fromStrs))
	if err != nil {
		logger.Error("PromptRepository:TransitionStatus", err)
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateDeadline moves an active prompt's deadline. Closed and converted
// prompts are immutable.
func (r *PromptRepository) UpdateDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) (bool, error) {
	query := `
		UPDATE prompts SET deadline = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'active')
	`
	result, err := r.db.SQLx().ExecContext(ctx, query, id, deadline)
	if err != nil {
		logger.Error("PromptRepository:UpdateDeadline", err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PromptRepository) GetActivityByID(ctx context.Context, id uuid.UUID) (*entity.Activity, error) {
	query := `SELECT name, min_players, id, created_at, updated_at FROM activities WHERE id = $1`

	var activity entity.Activity
	err := r.db.GetContext(ctx, &activity, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("PromptRepository:GetActivityByID", err)
		return nil, err
	}

	return &activity, nil
}

func (r *PromptRepository) GetGroupMemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM group_members WHERE group_id = $1`

	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query, groupID)
	if err != nil {
		logger.Error("PromptRepository:GetGroupMemberIDs", err)
		return nil, err
	}
	return ids, nil
}

// FilterExistingUserIDs returns the subset of ids that still resolve to user
// records. Stale ids from old suggestions are simply dropped.
func (r *PromptRepository) FilterExistingUserIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id FROM users WHERE id = ANY($1)`

	var existing []uuid.UUID
	err := r.db.SelectContext(ctx, &existing, query, pq.Array(ids))
	if err != nil {
		logger.Error("PromptRepository:FilterExistingUserIDs", err)
		return nil, err
	}
	return existing, nil
}
