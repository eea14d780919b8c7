package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gameplan-api/core/entity"

	"github.com/google/uuid"
)

type SlotPreference string

const (
	PreferencePreferred  SlotPreference = "preferred"
	PreferenceAcceptable SlotPreference = "acceptable"
)

// TimeSlotEntry is one submitted availability window.
type TimeSlotEntry struct {
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	Preference SlotPreference `json:"preference"`
}

// TimeSlotList stores the submitted windows as a JSONB column.
type TimeSlotList []TimeSlotEntry

func (l TimeSlotList) Value() (driver.Value, error) {
	if l == nil {
		l = TimeSlotList{}
	}
	return json.Marshal(l)
}

func (l *TimeSlotList) Scan(value interface{}) error {
	if value == nil {
		*l = TimeSlotList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, l)
}

// Response is one participant's submission for a prompt. At most one row
// exists per (prompt, user); resubmission updates in place. A row with a nil
// SubmittedAt is a reminder-tracking stub, not a submission.
type Response struct {
	PromptID       uuid.UUID    `db:"prompt_id" json:"prompt_id"`
	UserID         uuid.UUID    `db:"user_id" json:"user_id"`
	TimeSlots      TimeSlotList `db:"time_slots" json:"time_slots"`
	UserTimezone   string       `db:"user_timezone" json:"user_timezone"`
	IsUnavailable  bool         `db:"is_unavailable" json:"is_unavailable"`
	SubmittedAt    *time.Time   `db:"submitted_at" json:"submitted_at,omitempty"`
	TokenID        *string      `db:"token_id" json:"token_id,omitempty"`
	LastRemindedAt *time.Time   `db:"last_reminded_at" json:"last_reminded_at,omitempty"`
	entity.BaseEntity
}
