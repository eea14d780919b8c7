package service

import (
	"context"
	"fmt"
	"time"

	"gameplan-api/core/constants"
	"gameplan-api/core/errors"
	"gameplan-api/core/logger"
	notificationdto "gameplan-api/modules/notification/dto"
	notificationservice "gameplan-api/modules/notification/service"
	"gameplan-api/modules/prompt/dto"
	"gameplan-api/modules/prompt/entity"
	"gameplan-api/modules/prompt/repository"
	tokenservice "gameplan-api/modules/token/service"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// PromptService drives the prompt lifecycle: creation with member fan-out,
// deadline changes, and cancellation.
type PromptService struct {
	promptRepo    repository.PromptRepositoryInterface
	tokens        tokenservice.TokenServiceInterface
	notifications *notificationservice.NotificationService
	scheduler     *SchedulerService
}

func NewPromptService(
	promptRepo repository.PromptRepositoryInterface,
	tokens tokenservice.TokenServiceInterface,
	notifications *notificationservice.NotificationService,
	scheduler *SchedulerService,
) *PromptService {
	return &PromptService{
		promptRepo:    promptRepo,
		tokens:        tokens,
		notifications: notifications,
		scheduler:     scheduler,
	}
}

// dedupeKey identifies one collection round. Two prompts for the same group
// and period collide on it; an empty period label means the deadline date.
func dedupeKey(groupID uuid.UUID, periodLabel string, deadline time.Time) string {
	if periodLabel == "" {
		periodLabel = deadline.UTC().Format("2006-01-02")
	}
	return slug.Make(fmt.Sprintf("%s %s", groupID, periodLabel))
}

// CreatePrompt creates the prompt, issues a magic link to every group member,
// notifies them, activates the prompt, and schedules its reminder and
// deadline jobs. Token or notification failures for individual members do not
// fail the prompt.
func (s *PromptService) CreatePrompt(ctx context.Context, req *dto.CreatePromptRequest) (*dto.CreatePromptResult, *errors.AppError) {
	if !req.Deadline.After(time.Now().Add(constants.MinReminderDelay)) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "deadline must be in the future", nil)
	}
	if req.ActivityID != nil {
		activity, err := s.promptRepo.GetActivityByID(ctx, *req.ActivityID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load activity", err)
		}
		if activity == nil {
			return nil, errors.NewAppError(errors.ErrNotFound, "activity not found", nil)
		}
	}

	prompt := &entity.Prompt{
		GroupID:             req.GroupID,
		ActivityID:          req.ActivityID,
		Deadline:            req.Deadline.UTC(),
		Status:              entity.PromptStatusPending,
		DedupeKey:           dedupeKey(req.GroupID, req.PeriodLabel, req.Deadline),
		AutoScheduleEnabled: req.AutoScheduleEnabled,
		BlindVoting:         req.BlindVoting,
		CustomMessage:       req.CustomMessage,
	}
	created, err := s.promptRepo.CreatePrompt(ctx, prompt)
	if err != nil {
		if err == repository.ErrDuplicatePrompt {
			return nil, errors.NewAppError(errors.ErrAlreadyExists, "a prompt for this group and period already exists", nil)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create prompt", err)
	}

	memberIDs, err := s.promptRepo.GetGroupMemberIDs(ctx, req.GroupID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load group members", err)
	}

	issued, notifyFailed := s.fanOutInvitations(ctx, created, memberIDs)

	if _, err := s.promptRepo.TransitionStatus(ctx, created.ID,
		[]entity.PromptStatus{entity.PromptStatusPending}, entity.PromptStatusActive); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to activate prompt", err)
	}
	created.Status = entity.PromptStatusActive

	if _, err := s.scheduler.ScheduleReminders(ctx, created.ID, created.Deadline); err != nil {
		logger.Error("PromptService:CreatePrompt", err)
	}
	if _, err := s.scheduler.ScheduleDeadlineJob(ctx, created.ID, created.Deadline); err != nil {
		logger.Error("PromptService:CreatePrompt", err)
	}

	return &dto.CreatePromptResult{
		Prompt:       created,
		TokensIssued: issued,
		NotifyFailed: notifyFailed,
	}, nil
}

// fanOutInvitations issues one magic link per member and sends the invite
// notification carrying the form URL.
func (s *PromptService) fanOutInvitations(ctx context.Context, prompt *entity.Prompt, memberIDs []uuid.UUID) (issued, notifyFailed int) {
	reqs := make([]*notificationdto.CreateNotificationRequest, 0, len(memberIDs))
	for _, userID := range memberIDs {
		token, err := s.tokens.Issue(ctx, userID, prompt.ID, time.Until(prompt.Deadline))
		if err != nil {
			logger.Error("PromptService:fanOutInvitations", err)
			continue
		}
		issued++
		message := "Share your availability for the upcoming game night."
		if prompt.CustomMessage != nil && *prompt.CustomMessage != "" {
			message = *prompt.CustomMessage
		}
		reqs = append(reqs, &notificationdto.CreateNotificationRequest{
			UserID:  userID,
			Title:   "When can you play?",
			Message: message,
			Type:    "availability_request",
			Data: map[string]interface{}{
				"prompt_id": prompt.ID.String(),
				"form_url":  token.FormURL,
				"deadline":  prompt.Deadline.Format(time.RFC3339),
			},
		})
	}
	delivery := s.notifications.SendBatch(ctx, reqs)
	return issued, delivery.Failed
}

// GetPrompt returns a prompt by id.
func (s *PromptService) GetPrompt(ctx context.Context, id uuid.UUID) (*entity.Prompt, *errors.AppError) {
	prompt, err := s.promptRepo.GetPromptByID(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load prompt", err)
	}
	if prompt == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "prompt not found", nil)
	}
	return prompt, nil
}

// UpdateDeadline moves an open prompt's deadline and reschedules its jobs.
// The deterministic task ids make the reschedule last-write-wins.
func (s *PromptService) UpdateDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) *errors.AppError {
	if !deadline.After(time.Now()) {
		return errors.NewAppError(errors.ErrInvalidInput, "deadline must be in the future", nil)
	}
	updated, err := s.promptRepo.UpdateDeadline(ctx, id, deadline.UTC())
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to update deadline", err)
	}
	if !updated {
		return errors.NewAppError(errors.ErrNotFound, "prompt not found or no longer open", nil)
	}
	if _, err := s.scheduler.ScheduleReminders(ctx, id, deadline); err != nil {
		logger.Error("PromptService:UpdateDeadline", err)
	}
	if _, err := s.scheduler.ScheduleDeadlineJob(ctx, id, deadline); err != nil {
		logger.Error("PromptService:UpdateDeadline", err)
	}
	return nil
}

// CancelPrompt closes an open prompt and drops its pending jobs.
func (s *PromptService) CancelPrompt(ctx context.Context, id uuid.UUID) *errors.AppError {
	closed, err := s.promptRepo.TransitionStatus(ctx, id,
		[]entity.PromptStatus{entity.PromptStatusPending, entity.PromptStatusActive}, entity.PromptStatusClosed)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to cancel prompt", err)
	}
	if !closed {
		return errors.NewAppError(errors.ErrNotFound, "prompt not found or already finished", nil)
	}
	dropped := s.scheduler.CancelPromptJobs(ctx, id)
	logger.Info("cancelled prompt", "promptId", id, "jobsDropped", dropped.Cancelled)
	return nil
}
