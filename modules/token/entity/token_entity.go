package entity

import (
	"time"

	"gameplan-api/core/entity"

	"github.com/google/uuid"
)

type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusRevoked TokenStatus = "revoked"
)

// MagicToken is the server-side shadow of a signed availability-form token.
// The signed JWT carries the claims; this row tracks lifecycle and usage.
type MagicToken struct {
	TokenID    string      `db:"token_id" json:"token_id"`
	UserID     uuid.UUID   `db:"user_id" json:"user_id"`
	PromptID   uuid.UUID   `db:"prompt_id" json:"prompt_id"`
	Status     TokenStatus `db:"status" json:"status"`
	ExpiresAt  time.Time   `db:"expires_at" json:"expires_at"`
	UsageCount int         `db:"usage_count" json:"usage_count"`
	LastUsedAt *time.Time  `db:"last_used_at" json:"last_used_at,omitempty"`
	entity.BaseEntity
}

// ValidationAttempt is the append-only analytics record of one validation
// call. Written fire-and-forget; only reporting reads it back.
type ValidationAttempt struct {
	ID              uuid.UUID `db:"id" json:"id"`
	TokenID         *string   `db:"token_id" json:"token_id,omitempty"`
	Success         bool      `db:"success" json:"success"`
	FailureCategory *string   `db:"failure_category" json:"failure_category,omitempty"`
	IPAddress       string    `db:"ip_address" json:"ip_address"`
	UserAgent       string    `db:"user_agent" json:"user_agent"`
	GraceUsed       bool      `db:"grace_used" json:"grace_used"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
