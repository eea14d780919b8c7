package dto

import (
	"time"

	"gameplan-api/modules/availability/entity"

	"github.com/google/uuid"
)

type ValidateTokenRequest struct {
	Token        string     `json:"token" validate:"required"`
	FormLoadedAt *time.Time `json:"form_loaded_at,omitempty"`
}

// ValidateTokenResponse is the form context returned for a valid link.
type ValidateTokenResponse struct {
	Valid            bool      `json:"valid"`
	PromptID         uuid.UUID `json:"prompt_id"`
	Deadline         time.Time `json:"deadline"`
	ActivityName     string    `json:"activity_name,omitempty"`
	CustomMessage    *string   `json:"custom_message,omitempty"`
	AlreadySubmitted bool      `json:"already_submitted"`
	GraceUsed        bool      `json:"grace_used"`
}

type TimeSlotInput struct {
	Start      time.Time `json:"start" validate:"required"`
	End        time.Time `json:"end" validate:"required"`
	Preference string    `json:"preference"`
}

type SubmitResponseRequest struct {
	MagicToken    string          `json:"magic_token" validate:"required"`
	TimeSlots     []TimeSlotInput `json:"time_slots"`
	UserTimezone  string          `json:"user_timezone"`
	IsUnavailable bool            `json:"is_unavailable"`
	FormLoadedAt  *time.Time      `json:"form_loaded_at,omitempty"`
}

type SubmitResponseResult struct {
	Success   bool      `json:"success"`
	PromptID  uuid.UUID `json:"prompt_id,omitempty"`
	SlotCount int       `json:"slot_count"`
	Resubmit  bool      `json:"resubmit"`
}

// ToEntries converts validated inputs to storage entries. Times are
// normalized to UTC so identical windows submitted from different zones
// aggregate together.
func ToEntries(slots []TimeSlotInput) entity.TimeSlotList {
	entries := make(entity.TimeSlotList, 0, len(slots))
	for _, slot := range slots {
		preference := entity.SlotPreference(slot.Preference)
		if preference != entity.PreferencePreferred {
			preference = entity.PreferenceAcceptable
		}
		entries = append(entries, entity.TimeSlotEntry{
			Start:      slot.Start.UTC(),
			End:        slot.End.UTC(),
			Preference: preference,
		})
	}
	return entries
}
