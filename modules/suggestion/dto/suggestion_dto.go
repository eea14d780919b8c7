package dto

import (
	"time"

	"gameplan-api/modules/suggestion/entity"

	"github.com/google/uuid"
)

// AggregateResult reports one aggregation run. Failures that are part of
// normal operation (missing prompt, no responses yet) come back as
// Success=false rather than an error.
type AggregateResult struct {
	Success         bool                `json:"success"`
	Message         string              `json:"message,omitempty"`
	PromptID        uuid.UUID           `json:"prompt_id"`
	SuggestionCount int                 `json:"suggestion_count"`
	ResponseCount   int                 `json:"response_count"`
	Suggestions     []entity.Suggestion `json:"suggestions,omitempty"`
	OrphanedHolds   []OrphanedHold      `json:"-"`
}

// OrphanedHold is a calendar hold whose suggestion window no longer exists
// after regeneration. The caller releases these best effort.
type OrphanedHold struct {
	UserID uuid.UUID
	HoldID string
}

type ConvertSuggestionRequest struct {
	SuggestionID uuid.UUID `json:"suggestion_id" validate:"required"`
	SendEmails   bool      `json:"send_emails"`
	Comments     *string   `json:"comments,omitempty"`
	// ActingUserID is the admin driving a manual conversion; zero for the
	// deadline job. Set from the auth claims, never from the request body.
	ActingUserID uuid.UUID `json:"-"`
}

type ConversionResult struct {
	Success          bool          `json:"success"`
	AlreadyConverted bool          `json:"already_converted"`
	Message          string        `json:"message,omitempty"`
	EventID          *uuid.UUID    `json:"event_id,omitempty"`
	Event            *entity.Event `json:"event,omitempty"`
	ParticipantIDs   []uuid.UUID   `json:"participant_ids,omitempty"`
}

// HoldPlacementResult summarizes one pass of the holds orchestrator.
type HoldPlacementResult struct {
	Placed  int `json:"placed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SuggestionFilter narrows and orders a prompt's suggestion listing.
// Zero values mean no filtering and the default ranking order.
type SuggestionFilter struct {
	MinParticipants int
	MeetsMinimum    *bool
	OrderBy         string
	OrderDirection  string
}

type SuggestionView struct {
	ID               uuid.UUID   `json:"id"`
	WindowStart      time.Time   `json:"window_start"`
	WindowEnd        time.Time   `json:"window_end"`
	ParticipantCount int         `json:"participant_count"`
	ParticipantIDs   []uuid.UUID `json:"participant_ids,omitempty"`
	PreferredCount   int         `json:"preferred_count"`
	MeetsMinimum     bool        `json:"meets_minimum"`
	Score            float64     `json:"score"`
	ConvertedEventID *uuid.UUID  `json:"converted_event_id,omitempty"`
}
