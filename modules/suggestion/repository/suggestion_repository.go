package repository

import (
	"context"
	"database/sql"
	"time"

	"gameplan-api/core/database"
	"gameplan-api/modules/suggestion/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ConversionStore exposes the writes that must share the conversion
// transaction. The suggestion row is locked for the lifetime of the store.
type ConversionStore interface {
	CreateEvent(ctx context.Context, event *entity.Event) (*entity.Event, error)
	AddEventParticipants(ctx context.Context, eventID uuid.UUID, userIDs []uuid.UUID) error
	StampConverted(ctx context.Context, suggestionID, eventID uuid.UUID) error
	MarkPromptConverted(ctx context.Context, promptID uuid.UUID) error
}

type SuggestionRepositoryInterface interface {
	ReplaceSuggestions(ctx context.Context, promptID uuid.UUID, suggestions []entity.Suggestion) error
	GetSuggestionsByPromptID(ctx context.Context, promptID uuid.UUID) ([]entity.Suggestion, error)
	GetSuggestionByID(ctx context.Context, id uuid.UUID) (*entity.Suggestion, error)
	GetTopQualifying(ctx context.Context, promptID uuid.UUID, limit int) ([]entity.Suggestion, error)
	GetSuggestionsWithHolds(ctx context.Context, promptID uuid.UUID, excludeID *uuid.UUID) ([]entity.Suggestion, error)
	UpdateHoldMap(ctx context.Context, suggestionID uuid.UUID, holds entity.HoldMap) error
	WithConversionLock(ctx context.Context, suggestionID uuid.UUID, fn func(store ConversionStore, suggestion *entity.Suggestion) error) error
	GetEventByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	GetEventParticipantIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error)
}

type SuggestionRepository struct {
	db database.IDatabase
}

func NewSuggestionRepository(db database.IDatabase) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// ReplaceSuggestions swaps out the full suggestion set for a prompt in one
// transaction so readers never observe a partial mix of old and new rows.
func (r *SuggestionRepository) ReplaceSuggestions(ctx context.Context, promptID uuid.UUID, suggestions []entity.Suggestion) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM suggestions WHERE prompt_id = $1 AND converted_event_id IS NULL`, promptID); err != nil {
			return err
		}
		if len(suggestions) == 0 {
			return nil
		}
		query := `
			INSERT INTO suggestions (prompt_id, window_start, window_end, participant_count,
				participant_ids, preferred_count, meets_minimum, score, calendar_holds)
			VALUES (:prompt_id, :window_start, :window_end, :participant_count,
				:participant_ids, :preferred_count, :meets_minimum, :score, :calendar_holds)`
		for i := range suggestions {
			suggestions[i].PromptID = promptID
			if _, err := tx.NamedExecContext(ctx, query, suggestions[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SuggestionRepository) GetSuggestionsByPromptID(ctx context.Context, promptID uuid.UUID) ([]entity.Suggestion, error) {
	suggestions := []entity.Suggestion{}
	query := `
		SELECT * FROM suggestions
		WHERE prompt_id = $1
		ORDER BY score DESC, window_start ASC, window_end ASC`
	if err := r.db.SQLx().SelectContext(ctx, &suggestions, query, promptID); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (r *SuggestionRepository) GetSuggestionByID(ctx context.Context, id uuid.UUID) (*entity.Suggestion, error) {
	var suggestion entity.Suggestion
	err := r.db.SQLx().GetContext(ctx, &suggestion, `SELECT * FROM suggestions WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &suggestion, nil
}

func (r *SuggestionRepository) GetTopQualifying(ctx context.Context, promptID uuid.UUID, limit int) ([]entity.Suggestion, error) {
	suggestions := []entity.Suggestion{}
	query := `
		SELECT * FROM suggestions
		WHERE prompt_id = $1 AND meets_minimum = true AND converted_event_id IS NULL
		ORDER BY score DESC, window_start ASC, window_end ASC
		LIMIT $2`
	if err := r.db.SQLx().SelectContext(ctx, &suggestions, query, promptID, limit); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (r *SuggestionRepository) GetSuggestionsWithHolds(ctx context.Context, promptID uuid.UUID, excludeID *uuid.UUID) ([]entity.Suggestion, error) {
	suggestions := []entity.Suggestion{}
	query := `
		SELECT * FROM suggestions
		WHERE prompt_id = $1 AND calendar_holds != '{}'::jsonb`
	args := []interface{}{promptID}
	if excludeID != nil {
		query += ` AND id != $2`
		args = append(args, *excludeID)
	}
	if err := r.db.SQLx().SelectContext(ctx, &suggestions, query, args...); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (r *SuggestionRepository) UpdateHoldMap(ctx context.Context, suggestionID uuid.UUID, holds entity.HoldMap) error {
	_, err := r.db.SQLx().ExecContext(ctx,
		`UPDATE suggestions SET calendar_holds = $2, updated_at = $3 WHERE id = $1`,
		suggestionID, holds, time.Now())
	return err
}

// WithConversionLock loads the suggestion under SELECT ... FOR UPDATE and runs
// fn inside the same transaction. A nil suggestion means the row does not
// exist; fn still runs so the caller can report it.
func (r *SuggestionRepository) WithConversionLock(ctx context.Context, suggestionID uuid.UUID, fn func(store ConversionStore, suggestion *entity.Suggestion) error) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var suggestion entity.Suggestion
		err := tx.GetContext(ctx, &suggestion,
			`SELECT * FROM suggestions WHERE id = $1 FOR UPDATE`, suggestionID)
		if err != nil {
			if err == sql.ErrNoRows {
				return fn(&conversionStore{tx: tx}, nil)
			}
			return err
		}
		return fn(&conversionStore{tx: tx}, &suggestion)
	})
}

func (r *SuggestionRepository) GetEventByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	var event entity.Event
	err := r.db.SQLx().GetContext(ctx, &event, `SELECT * FROM events WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *SuggestionRepository) GetEventParticipantIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.SQLx().SelectContext(ctx, &ids,
		`SELECT user_id FROM event_participants WHERE event_id = $1 ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type conversionStore struct {
	tx *sqlx.Tx
}

func (s *conversionStore) CreateEvent(ctx context.Context, event *entity.Event) (*entity.Event, error) {
	query := `
		INSERT INTO events (group_id, activity_id, start_time, duration_minutes, status, share_code, comments, created_by)
		VALUES (:group_id, :activity_id, :start_time, :duration_minutes, :status, :share_code, :comments, :created_by)
		RETURNING id, created_at, updated_at`
	rows, err := s.tx.NamedQuery(query, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt); err != nil {
			return nil, err
		}
	}
	return event, nil
}

func (s *conversionStore) AddEventParticipants(ctx context.Context, eventID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO event_participants (event_id, user_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT (event_id, user_id) DO NOTHING`,
		eventID, pq.Array(userIDs))
	return err
}

func (s *conversionStore) StampConverted(ctx context.Context, suggestionID, eventID uuid.UUID) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE suggestions SET converted_event_id = $2, updated_at = $3
		WHERE id = $1 AND converted_event_id IS NULL`,
		suggestionID, eventID, time.Now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *conversionStore) MarkPromptConverted(ctx context.Context, promptID uuid.UUID) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE prompts SET status = 'converted', updated_at = $2
		WHERE id = $1 AND status IN ('active', 'closed')`,
		promptID, time.Now())
	return err
}
