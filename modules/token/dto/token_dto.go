package dto

import (
	"time"

	"github.com/google/uuid"
)

type IssueTokenResult struct {
	TokenID     string    `json:"token_id"`
	SignedToken string    `json:"signed_token"`
	FormURL     string    `json:"form_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RequestMeta carries requester attributes recorded by the analytics sink.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// ValidationResult is the internal outcome of a successful validation.
// API responses never expose the failure taxonomy; see the controller.
type ValidationResult struct {
	TokenID   string    `json:"token_id"`
	UserID    uuid.UUID `json:"user_id"`
	PromptID  uuid.UUID `json:"prompt_id"`
	GraceUsed bool      `json:"grace_used"`
}
