package entity

import (
	"time"

	"gameplan-api/core/entity"

	"github.com/google/uuid"
)

// PromptStatus is the lifecycle state of an availability prompt. Transitions
// only move forward: pending -> active -> closed or converted.
type PromptStatus string

const (
	PromptStatusPending   PromptStatus = "pending"
	PromptStatusActive    PromptStatus = "active"
	PromptStatusClosed    PromptStatus = "closed"
	PromptStatusConverted PromptStatus = "converted"
)

// Prompt is one round of availability collection for a group.
type Prompt struct {
	GroupID             uuid.UUID    `db:"group_id" json:"group_id"`
	ActivityID          *uuid.UUID   `db:"activity_id" json:"activity_id,omitempty"`
	Deadline            time.Time    `db:"deadline" json:"deadline"`
	Status              PromptStatus `db:"status" json:"status"`
	DedupeKey           string       `db:"dedupe_key" json:"dedupe_key"`
	AutoScheduleEnabled bool         `db:"auto_schedule_enabled" json:"auto_schedule_enabled"`
	BlindVoting         bool         `db:"blind_voting" json:"blind_voting"`
	CustomMessage       *string      `db:"custom_message" json:"custom_message,omitempty"`
	entity.BaseEntity
}

// Activity describes the recurring group activity a prompt schedules for.
// Its minimum player count drives the meets-minimum threshold.
type Activity struct {
	Name       string `db:"name" json:"name"`
	MinPlayers int    `db:"min_players" json:"min_players"`
	entity.BaseEntity
}
