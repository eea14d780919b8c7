package dto

import (
	"time"

	"gameplan-api/modules/prompt/entity"

	"github.com/google/uuid"
)

type CreatePromptRequest struct {
	GroupID             uuid.UUID  `json:"group_id" validate:"required"`
	ActivityID          *uuid.UUID `json:"activity_id,omitempty"`
	Deadline            time.Time  `json:"deadline" validate:"required"`
	AutoScheduleEnabled bool       `json:"auto_schedule_enabled"`
	BlindVoting         bool       `json:"blind_voting"`
	CustomMessage       *string    `json:"custom_message,omitempty"`
	// PeriodLabel names the collection round, e.g. "2026-w36". Empty
	// falls back to the deadline date.
	PeriodLabel string `json:"period_label,omitempty"`
}

type CreatePromptResult struct {
	Prompt       *entity.Prompt `json:"prompt"`
	TokensIssued int            `json:"tokens_issued"`
	NotifyFailed int            `json:"notify_failed"`
}

type UpdateDeadlineRequest struct {
	Deadline time.Time `json:"deadline" validate:"required"`
}

// ReminderTaskPayload is the body of a scheduled reminder job. Stage is the
// percentage of the response window that has elapsed when it fires.
type ReminderTaskPayload struct {
	PromptID uuid.UUID `json:"prompt_id"`
	Stage    int       `json:"stage"`
}

type DeadlineTaskPayload struct {
	PromptID uuid.UUID `json:"prompt_id"`
}

// ScheduledReminder reports one staged reminder job that was enqueued.
type ScheduledReminder struct {
	Stage  int           `json:"stage"`
	TaskID string        `json:"task_id"`
	Delay  time.Duration `json:"delay"`
}

type ScheduleRemindersResult struct {
	Scheduled int                 `json:"scheduled"`
	Reminders []ScheduledReminder `json:"reminders"`
}

type ScheduleDeadlineResult struct {
	Scheduled bool  `json:"scheduled"`
	DelayMs   int64 `json:"delay_ms"`
}

type CancelJobsResult struct {
	Cancelled int `json:"cancelled"`
}
