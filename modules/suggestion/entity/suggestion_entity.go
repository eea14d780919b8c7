package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gameplan-api/core/entity"

	"github.com/google/uuid"
)

// UUIDList stores a denormalized set of participant ids as JSONB.
type UUIDList []uuid.UUID

func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		l = UUIDList{}
	}
	return json.Marshal(l)
}

func (l *UUIDList) Scan(value interface{}) error {
	if value == nil {
		*l = UUIDList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, l)
}

// HoldMap maps participant id -> external calendar hold id.
type HoldMap map[string]string

func (m HoldMap) Value() (driver.Value, error) {
	if m == nil {
		m = HoldMap{}
	}
	return json.Marshal(m)
}

func (m *HoldMap) Scan(value interface{}) error {
	if value == nil {
		*m = HoldMap{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, m)
}

// Suggestion is a derived candidate time window for a prompt. Rows are fully
// regenerated by aggregation; only the hold map and the conversion link are
// written outside that path, and converted_event_id is write-once.
type Suggestion struct {
	PromptID         uuid.UUID  `db:"prompt_id" json:"prompt_id"`
	WindowStart      time.Time  `db:"window_start" json:"window_start"`
	WindowEnd        time.Time  `db:"window_end" json:"window_end"`
	ParticipantCount int        `db:"participant_count" json:"participant_count"`
	ParticipantIDs   UUIDList   `db:"participant_ids" json:"participant_ids"`
	PreferredCount   int        `db:"preferred_count" json:"preferred_count"`
	MeetsMinimum     bool       `db:"meets_minimum" json:"meets_minimum"`
	Score            float64    `db:"score" json:"score"`
	ConvertedEventID *uuid.UUID `db:"converted_event_id" json:"converted_event_id,omitempty"`
	CalendarHolds    HoldMap    `db:"calendar_holds" json:"calendar_holds,omitempty"`
	entity.BaseEntity
}

type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCancelled EventStatus = "cancelled"
)

// Event is the confirmed outcome of a conversion. Exactly one per
// successfully converted suggestion.
type Event struct {
	GroupID         uuid.UUID   `db:"group_id" json:"group_id"`
	ActivityID      *uuid.UUID  `db:"activity_id" json:"activity_id,omitempty"`
	StartTime       time.Time   `db:"start_time" json:"start_time"`
	DurationMinutes int         `db:"duration_minutes" json:"duration_minutes"`
	Status          EventStatus `db:"status" json:"status"`
	ShareCode       string      `db:"share_code" json:"share_code"`
	Comments        *string     `db:"comments" json:"comments,omitempty"`
	CreatedBy       *uuid.UUID  `db:"created_by" json:"created_by,omitempty"`
	entity.BaseEntity
}

// EventParticipant links one user to a confirmed event.
type EventParticipant struct {
	EventID   uuid.UUID `db:"event_id" json:"event_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
